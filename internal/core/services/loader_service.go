package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/trestleworks/planledger/internal/apperrors"
	"github.com/trestleworks/planledger/internal/core/domain"
	portssvc "github.com/trestleworks/planledger/internal/core/ports/services"
	"github.com/trestleworks/planledger/internal/dto"
	"github.com/trestleworks/planledger/internal/middleware"
	"github.com/trestleworks/planledger/internal/utils/validation"
)

// loaderService replays exported ledger history through the same services
// the live API uses, so every state-machine and idempotency rule applies to
// replayed traffic unchanged. Commit and rollback markers replay with the
// legacy latest clock: the loader is single-writer traffic.
type loaderService struct {
	planSvc    portssvc.PlanSvcFacade
	accountSvc portssvc.AccountWriterSvc
	clocks     portssvc.ClockManagerSvc
	progress   func(processed, total int)
}

// LoaderOption configures a loader service.
type LoaderOption func(*loaderService)

// WithLoaderProgress installs a callback invoked after each processed record.
func WithLoaderProgress(fn func(processed, total int)) LoaderOption {
	return func(s *loaderService) {
		s.progress = fn
	}
}

// NewLoaderService creates a new LoaderService.
func NewLoaderService(planSvc portssvc.PlanSvcFacade, accountSvc portssvc.AccountWriterSvc, clocks portssvc.ClockManagerSvc, opts ...LoaderOption) portssvc.LoaderSvc {
	s := &loaderService{
		planSvc:    planSvc,
		accountSvc: accountSvc,
		clocks:     clocks,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ensure loaderService implements the portssvc.LoaderSvc interface
var _ portssvc.LoaderSvc = (*loaderService)(nil)

func (s *loaderService) SeedAccounts(ctx context.Context, accounts []domain.Account) (int, error) {
	for i, account := range accounts {
		if err := s.accountSvc.CreateAccount(ctx, account); err != nil {
			return i, fmt.Errorf("failed to seed account %s: %w", account.AccountID, err)
		}
	}
	return len(accounts), nil
}

func (s *loaderService) Replay(ctx context.Context, records []dto.LoadRecord) (*dto.LoadSummary, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	validate, err := validation.Validator()
	if err != nil {
		return nil, err
	}
	for i, record := range records {
		if err := validate.Struct(record); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", apperrors.ErrValidation, i, err)
		}
	}

	summary := &dto.LoadSummary{}
	plansSeen := make(map[string]struct{})

	// Consecutive hold rows sharing plan and batch form one batch.
	var pending []dto.LoadRecord
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		planID := pending[0].PlanID
		batch := domain.Batch{BatchID: pending[0].BatchID}
		for _, row := range pending {
			batch.Postings = append(batch.Postings, row.ToDomainPosting())
		}
		if _, err := s.planSvc.Hold(ctx, planID, batch); err != nil {
			return fmt.Errorf("failed to hold batch %d of plan %s: %w", batch.BatchID, planID, err)
		}
		summary.BatchesHeld++
		summary.PostingsLoaded += len(batch.Postings)
		plansSeen[planID] = struct{}{}
		pending = pending[:0]
		return nil
	}

	total := len(records)
	for i, record := range records {
		switch record.Op {
		case dto.LoadOpHold:
			if len(pending) > 0 && (pending[0].PlanID != record.PlanID || pending[0].BatchID != record.BatchID) {
				if err := flush(); err != nil {
					return summary, err
				}
			}
			pending = append(pending, record)

		case dto.LoadOpCommit, dto.LoadOpRollback:
			if err := flush(); err != nil {
				return summary, err
			}
			plan, err := s.planSvc.GetPlanByID(ctx, record.PlanID)
			if err != nil {
				return summary, fmt.Errorf("record %d: failed to load plan %s: %w", i, record.PlanID, err)
			}
			if record.Op == dto.LoadOpCommit {
				if _, err := s.planSvc.CommitPlan(ctx, *plan, domain.LatestClock()); err != nil {
					return summary, fmt.Errorf("record %d: failed to commit plan %s: %w", i, record.PlanID, err)
				}
				summary.PlansCommitted++
			} else {
				if _, err := s.planSvc.RollbackPlan(ctx, *plan, domain.LatestClock()); err != nil {
					return summary, fmt.Errorf("record %d: failed to roll back plan %s: %w", i, record.PlanID, err)
				}
				summary.PlansRolledBack++
			}
			plansSeen[record.PlanID] = struct{}{}

		default:
			return summary, fmt.Errorf("%w: record %d has unknown op %q", apperrors.ErrValidation, i, record.Op)
		}

		if s.progress != nil {
			s.progress(i+1, total)
		}
	}
	if err := flush(); err != nil {
		return summary, err
	}

	summary.PlansTouched = len(plansSeen)
	summary.Clock = s.clocks.Current()
	logger.Info("replay finished",
		slog.Int("records", total),
		slog.Int("plans", summary.PlansTouched),
		slog.Int("batches", summary.BatchesHeld),
		slog.String("clock", summary.Clock.String()))
	return summary, nil
}
