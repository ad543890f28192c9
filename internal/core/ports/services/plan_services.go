package services

import (
	"context"

	"github.com/trestleworks/planledger/internal/core/domain"
)

// PlanHolderSvc defines the batch-recording side of the plan lifecycle.
type PlanHolderSvc interface {
	// Hold records a posting batch under the plan, creating plan and accounts
	// as needed. Re-holding an identical batch is an idempotent no-op; a
	// terminal plan accepts the call without effect. The returned clock is
	// the plan's clock after the call. Hold never returns ErrNotReady.
	Hold(ctx context.Context, planID string, batch domain.Batch) (domain.Clock, error)
}

// PlanFinalizerSvc defines the terminal transitions of the plan lifecycle.
// Both operations validate that the submitted plan's batches equal the
// recorded ones before acting, and both are idempotent once the plan is
// terminal.
type PlanFinalizerSvc interface {
	// CommitPlan applies every batch of the plan to account balances.
	CommitPlan(ctx context.Context, plan domain.Plan, clock domain.Clock) (domain.Clock, error)

	// RollbackPlan discards every batch of the plan.
	RollbackPlan(ctx context.Context, plan domain.Plan, clock domain.Clock) (domain.Clock, error)
}

// PlanReaderSvc defines read operations for plans.
type PlanReaderSvc interface {
	// GetPlanByID retrieves a plan with its recorded batches.
	GetPlanByID(ctx context.Context, planID string) (*domain.Plan, error)
}

// PlanSvcFacade combines all plan-related service interfaces
type PlanSvcFacade interface {
	PlanHolderSvc
	PlanFinalizerSvc
	PlanReaderSvc
}
