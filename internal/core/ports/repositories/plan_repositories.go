package repositories

import (
	"context"

	"github.com/trestleworks/planledger/internal/core/domain"
)

// PlanReader defines read operations for plan data
type PlanReader interface {
	// FindPlanByID retrieves a plan with all its recorded batches and
	// postings. Returns apperrors.ErrPlanNotFound when no such plan exists.
	FindPlanByID(ctx context.Context, planID string) (*domain.Plan, error)

	// FindPostingsByAccountID retrieves every posting referencing the account
	// joined with the owning plan's current status, from one consistent
	// snapshot of the store.
	FindPostingsByAccountID(ctx context.Context, accountID string) ([]domain.AccountPosting, error)
}

// PlanWriter defines write operations for plan data. Every method is atomic:
// the store records all of its effects, including the per-replica counters of
// the supplied clock, or none of them.
type PlanWriter interface {
	// AppendBatch records a new batch under the plan, creating the plan (Open)
	// and any accounts in newAccounts when missing, and stamps the plan with
	// clock. The caller has already validated the batch; the store re-checks
	// account currencies under the write lock and returns
	// apperrors.ErrValidation on a mismatch lost to a concurrent creation.
	// A concurrently recorded batch with the same id yields
	// apperrors.ErrDuplicate; a concurrently terminated plan yields
	// apperrors.ErrConflict.
	AppendBatch(ctx context.Context, planID string, batch domain.Batch, newAccounts []domain.Account, clock domain.Clock) error

	// TransitionPlan atomically moves an Open plan to the given terminal
	// status and stamps it with clock. Returns apperrors.ErrConflict when the
	// plan is no longer Open and apperrors.ErrPlanNotFound when it is unknown.
	TransitionPlan(ctx context.Context, planID string, status domain.PlanStatus, clock domain.Clock) error
}

// PlanRepositoryFacade combines all plan-related repository interfaces
type PlanRepositoryFacade interface {
	PlanReader
	PlanWriter
}
