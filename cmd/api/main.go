package main

import (
	"log"
	"os"
	"strconv"

	"eventcontrol/internal/handlers"
	"eventcontrol/internal/notices"
	"eventcontrol/internal/routes"
	"eventcontrol/internal/settlement"
	"eventcontrol/internal/store"
	"eventcontrol/internal/wallet"
	"eventcontrol/pkg/config"
	"eventcontrol/pkg/notify"
	"eventcontrol/pkg/pricing"
	solanapkg "eventcontrol/pkg/solana"

	"github.com/redis/go-redis/v9"
)

func main() {
	// Initialize database
	config.InitDB()
	config.ExecuteMigrations()

	// Initialize RabbitMQ (optional, will log warning if not configured)
	var noticePub settlement.NoticePublisher = notices.NopPublisher{}
	if os.Getenv("RABBITMQ_HOST") != "" {
		config.InitRabbitMQ()
		defer func() {
			if config.RabbitMQ != nil {
				config.RabbitMQ.Close()
			}
		}()
		pub, err := notices.NewQueuePublisher()
		if err != nil {
			log.Fatal("Failed to create notice publisher:", err)
		}
		defer pub.Close()
		noticePub = pub
		log.Println("RabbitMQ initialized successfully")
	} else {
		log.Println("RabbitMQ not configured, settlement notices disabled")
	}

	engine, keystore := buildEngine(noticePub)
	handlers.Init(engine, keystore)

	// Set up router
	r := routes.SetupRouter()

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func buildEngine(noticePub settlement.NoticePublisher) (*settlement.Engine, *solanapkg.Keystore) {
	rps, _ := strconv.Atoi(os.Getenv("SOLANA_RPS"))
	chain := solanapkg.NewClient(os.Getenv("SOLANA_RPC"), rps)
	keystore := solanapkg.NewKeystore(os.Getenv("KEYSTORE_DIR"), os.Getenv("KEYSTORE_PASSWORD"))

	var pusher *wallet.Pusher
	if wsURL := os.Getenv("COMMUNITY_WS_URL"); wsURL != "" {
		pusher = wallet.NewPusher(wsURL)
	}
	treasuries := wallet.NewService(config.DB, keystore, os.Getenv("COMMUNITY_API_URL"), pusher)

	var rdb *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
	}
	oracle := pricing.NewClient(os.Getenv("PRICE_API_URL"), rdb)

	notifier := notify.NewWebhookNotifier(os.Getenv("CHAT_WEBHOOK_URL"), os.Getenv("CHAT_WEBHOOK_TOKEN"))

	engine := settlement.NewEngine(
		store.New(config.DB),
		wallet.NewRail(chain),
		oracle,
		notifier,
		noticePub,
		treasuries,
		settlement.Options{},
	)
	return engine, keystore
}
