package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/trestleworks/planledger/internal/core/domain"
	portsevents "github.com/trestleworks/planledger/internal/core/ports/events"
)

type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a publisher writing plan transition events to topic.
// Messages are keyed by plan id so each plan's events stay ordered within a
// partition.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Ensure Publisher implements portsevents.Publisher
var _ portsevents.Publisher = (*Publisher)(nil)

func (p *Publisher) PublishPlanTransition(ctx context.Context, event domain.PlanEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode plan event %s: %w", event.EventID, err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.PlanID),
		Value: data,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
