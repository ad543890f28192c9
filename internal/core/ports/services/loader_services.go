package services

import (
	"context"

	"github.com/trestleworks/planledger/internal/core/domain"
	"github.com/trestleworks/planledger/internal/dto"
)

// LoaderSvc replays flattened historical records through the live engine
// write path. It is a one-shot utility: it assumes no concurrent traffic on
// the plans it replays.
type LoaderSvc interface {
	// SeedAccounts persists explicit account records before replay.
	SeedAccounts(ctx context.Context, accounts []domain.Account) (int, error)

	// Replay walks records in order, grouping consecutive hold rows that
	// share plan and batch into single Hold calls and applying commit and
	// rollback markers through CommitPlan/RollbackPlan.
	Replay(ctx context.Context, records []dto.LoadRecord) (*dto.LoadSummary, error)
}
