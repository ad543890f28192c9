package events

import (
	"context"

	"github.com/trestleworks/planledger/internal/core/domain"
)

// Publisher emits plan transition events to downstream consumers after the
// underlying mutation is durably committed. Publishing is best-effort: the
// ledger operation has already succeeded when publish runs.
type Publisher interface {
	PublishPlanTransition(ctx context.Context, event domain.PlanEvent) error
	Close() error
}
