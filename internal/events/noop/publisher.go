package noop

import (
	"context"

	"github.com/trestleworks/planledger/internal/core/domain"
	portsevents "github.com/trestleworks/planledger/internal/core/ports/events"
)

// Publisher discards every event. Used when no broker is configured.
type Publisher struct{}

func NewPublisher() *Publisher {
	return &Publisher{}
}

// Ensure Publisher implements portsevents.Publisher
var _ portsevents.Publisher = (*Publisher)(nil)

func (p *Publisher) PublishPlanTransition(ctx context.Context, event domain.PlanEvent) error {
	return nil
}

func (p *Publisher) Close() error {
	return nil
}
