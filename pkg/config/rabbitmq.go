package config

import (
	"fmt"
	"log"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var RabbitMQ *amqp.Connection

// SettlementNoticeQueue carries terminal-transition notices between the
// bot-side and backend-side processes.
const SettlementNoticeQueue = "event_settlements"

// InitRabbitMQ RabbitMQ with retry logic
func InitRabbitMQ() {
	url := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		os.Getenv("RABBITMQ_USER"),
		os.Getenv("RABBITMQ_PASSWORD"),
		os.Getenv("RABBITMQ_HOST"),
		os.Getenv("RABBITMQ_PORT"),
	)

	maxRetries := 10
	retryDelay := 3 * time.Second

	var conn *amqp.Connection
	var err error

	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			RabbitMQ = conn
			log.Printf("Successfully connected to RabbitMQ at %s", os.Getenv("RABBITMQ_HOST"))
			return
		}

		if i < maxRetries-1 {
			log.Printf("Failed to connect to RabbitMQ (attempt %d/%d): %v. Retrying in %v...", i+1, maxRetries, err, retryDelay)
			time.Sleep(retryDelay)
		}
	}

	log.Fatalf("Failed to connect to RabbitMQ after %d attempts: %v", maxRetries, err)
}
