package main

import (
	"context"
	"os"
	"strconv"

	"eventcontrol/internal/notices"
	"eventcontrol/internal/settlement"
	"eventcontrol/internal/store"
	"eventcontrol/internal/wallet"
	"eventcontrol/pkg/config"
	"eventcontrol/pkg/metrics"
	"eventcontrol/pkg/notify"
	"eventcontrol/pkg/pricing"
	solanapkg "eventcontrol/pkg/solana"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	logrus "github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	// Initialize database
	config.InitDB()

	// Initialize RabbitMQ
	config.InitRabbitMQ()
	defer config.RabbitMQ.Close()

	noticePub, err := notices.NewQueuePublisher()
	if err != nil {
		logrus.Fatal("Failed to create notice publisher: ", err)
	}
	defer noticePub.Close()

	engine := buildEngine(noticePub)

	// Expose settlement counters
	metricsAddr := os.Getenv("METRICS_ADDR")
	if metricsAddr == "" {
		metricsAddr = ":9090"
	}
	go metrics.Serve(metricsAddr)

	// Schedule the sweeps
	c := cron.New(cron.WithSeconds())

	// Deadline sweep every 15 seconds
	_, err = c.AddFunc("*/15 * * * * *", func() {
		if err := engine.SweepDeadlines(context.Background()); err != nil {
			logrus.Errorf("Deadline sweep failed: %v", err)
		}
	})
	if err != nil {
		logrus.Fatalf("Failed to schedule deadline sweep: %v", err)
	}

	// Recovery sweep every 5 minutes
	_, err = c.AddFunc("0 */5 * * * *", func() {
		if err := engine.RecoverStuck(context.Background()); err != nil {
			logrus.Errorf("Recovery sweep failed: %v", err)
		}
	})
	if err != nil {
		logrus.Fatalf("Failed to schedule recovery sweep: %v", err)
	}

	c.Start()
	logrus.Info("Settlement worker started, sweeps scheduled")

	// Consume settlement notices for audit logging
	err = notices.Run(func(n settlement.SettlementNotice) {
		metrics.NoticesConsumedTotal.Inc()
		logrus.WithFields(logrus.Fields{
			"event_id":     n.EventID,
			"action":       n.Action,
			"status":       n.Status,
			"community_id": n.CommunityID,
		}).Info("Settlement notice received")
	})
	if err != nil {
		logrus.Fatal("Failed to start notice consumer: ", err)
	}
}

func buildEngine(noticePub settlement.NoticePublisher) *settlement.Engine {
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

	return settlement.NewEngine(
		store.New(config.DB),
		wallet.NewRail(chain),
		oracle,
		notifier,
		noticePub,
		treasuries,
		settlement.Options{},
	)
}
