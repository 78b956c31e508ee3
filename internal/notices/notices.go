package notices

import (
	"encoding/json"
	"fmt"

	"eventcontrol/internal/settlement"
	"eventcontrol/pkg/config"

	log "github.com/sirupsen/logrus"
)

// QueuePublisher emits settlement notices onto the durable settlement queue.
type QueuePublisher struct {
	pub *config.Publisher
}

func NewQueuePublisher() (*QueuePublisher, error) {
	pub, err := config.NewPublisher()
	if err != nil {
		return nil, fmt.Errorf("failed to create notice publisher: %w", err)
	}
	return &QueuePublisher{pub: pub}, nil
}

func (q *QueuePublisher) Publish(notice settlement.SettlementNotice) error {
	return q.pub.Publish(config.SettlementNoticeQueue, notice)
}

func (q *QueuePublisher) Close() error {
	return q.pub.Close()
}

// NopPublisher drops notices. Used when the broker is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(settlement.SettlementNotice) error { return nil }

// Run consumes the settlement queue and hands each decoded notice to fn.
// Blocks for the life of the consumer.
func Run(fn func(settlement.SettlementNotice)) error {
	consumer, err := config.NewConsumer(config.SettlementNoticeQueue)
	if err != nil {
		return fmt.Errorf("failed to create notice consumer: %w", err)
	}

	return consumer.Consume(func(body []byte) error {
		var notice settlement.SettlementNotice
		if err := json.Unmarshal(body, &notice); err != nil {
			log.Errorf("Failed to decode settlement notice, dropping: %v", err)
			return nil
		}
		fn(notice)
		return nil
	})
}
