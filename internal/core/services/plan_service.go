package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trestleworks/planledger/internal/apperrors"
	"github.com/trestleworks/planledger/internal/core/domain"
	portsevents "github.com/trestleworks/planledger/internal/core/ports/events"
	portsrepo "github.com/trestleworks/planledger/internal/core/ports/repositories"
	portssvc "github.com/trestleworks/planledger/internal/core/ports/services"
	"github.com/trestleworks/planledger/internal/middleware"
	"github.com/trestleworks/planledger/internal/utils/postings"
)

// planService drives the plan state machine: posting batches accumulate while
// a plan is Open, then the plan commits or rolls back exactly once. Operations
// on one plan are serialized in-process by a keyed mutex; the store's write
// lock covers concurrent replicas.
type planService struct {
	planRepo    portsrepo.PlanRepositoryFacade
	accountRepo portsrepo.AccountReader
	clocks      portssvc.ClockManagerSvc
	publisher   portsevents.Publisher

	mapMu sync.Mutex
	muMap map[string]*sync.Mutex
}

// NewPlanService creates a new PlanService.
func NewPlanService(planRepo portsrepo.PlanRepositoryFacade, accountRepo portsrepo.AccountReader, clocks portssvc.ClockManagerSvc, publisher portsevents.Publisher) portssvc.PlanSvcFacade {
	return &planService{
		planRepo:    planRepo,
		accountRepo: accountRepo,
		clocks:      clocks,
		publisher:   publisher,
		muMap:       make(map[string]*sync.Mutex),
	}
}

// Ensure planService implements the portssvc.PlanSvcFacade interface
var _ portssvc.PlanSvcFacade = (*planService)(nil)

// getPlanLock returns the mutex serializing this process's operations on one
// plan.
func (s *planService) getPlanLock(planID string) *sync.Mutex {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()
	mu, ok := s.muMap[planID]
	if !ok {
		mu = &sync.Mutex{}
		s.muMap[planID] = mu
	}
	return mu
}

func (s *planService) Hold(ctx context.Context, planID string, batch domain.Batch) (domain.Clock, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if planID == "" {
		return domain.Clock{}, fmt.Errorf("%w: plan id is required", apperrors.ErrValidation)
	}
	if issues := postings.ValidateShape(batch.BatchID, batch.Postings); len(issues) > 0 {
		return domain.Clock{}, apperrors.NewInvalidPostingParams(issues...)
	}

	mu := s.getPlanLock(planID)
	mu.Lock()
	defer mu.Unlock()

	plan, err := s.planRepo.FindPlanByID(ctx, planID)
	if err != nil && !errors.Is(err, apperrors.ErrPlanNotFound) {
		return domain.Clock{}, fmt.Errorf("failed to load plan %s: %w", planID, err)
	}

	if plan != nil {
		// Terminal plans ignore every later operation.
		if plan.Terminal() {
			logger.Info("hold on terminal plan ignored",
				slog.String("plan_id", planID),
				slog.String("status", string(plan.Status)))
			return plan.Clock, nil
		}
		if recorded := plan.FindBatch(batch.BatchID); recorded != nil {
			if issues := postings.CompareBatch(batch.BatchID, recorded.Postings, batch.Postings); len(issues) > 0 {
				return domain.Clock{}, apperrors.NewInvalidPostingParams(issues...)
			}
			// Identical re-submission is an idempotent no-op.
			return plan.Clock, nil
		}
	}

	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, batchAccountIDs(batch.Postings))
	if err != nil {
		return domain.Clock{}, fmt.Errorf("failed to fetch accounts for batch %d: %w", batch.BatchID, err)
	}
	if issues := postings.ValidateCurrencies(batch.BatchID, batch.Postings, accounts); len(issues) > 0 {
		return domain.Clock{}, apperrors.NewInvalidPostingParams(issues...)
	}

	now := time.Now().UTC()
	newAccounts := missingAccounts(batch.Postings, accounts, now)

	clock := s.clocks.Next()
	if err := s.planRepo.AppendBatch(ctx, planID, batch, newAccounts, clock); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrDuplicate):
			// Another replica recorded this batch id first. Fall back to the
			// idempotency comparison against what it recorded.
			return s.reconcileDuplicateHold(ctx, planID, batch)
		case errors.Is(err, apperrors.ErrConflict):
			// Another replica terminated the plan while we were validating.
			current, ferr := s.planRepo.FindPlanByID(ctx, planID)
			if ferr != nil {
				return domain.Clock{}, fmt.Errorf("failed to reload plan %s: %w", planID, ferr)
			}
			return current.Clock, nil
		}
		return domain.Clock{}, fmt.Errorf("failed to append batch %d to plan %s: %w", batch.BatchID, planID, err)
	}
	s.clocks.Observe(clock)

	batchID := batch.BatchID
	s.publish(ctx, domain.PlanEvent{
		EventID:    uuid.NewString(),
		PlanID:     planID,
		Kind:       domain.EventPlanHeld,
		BatchID:    &batchID,
		Clock:      clock,
		OccurredAt: now,
	})
	logger.Info("batch held",
		slog.String("plan_id", planID),
		slog.Int64("batch_id", batch.BatchID),
		slog.Int("postings", len(batch.Postings)),
		slog.String("clock", clock.String()))
	return clock, nil
}

func (s *planService) reconcileDuplicateHold(ctx context.Context, planID string, batch domain.Batch) (domain.Clock, error) {
	plan, err := s.planRepo.FindPlanByID(ctx, planID)
	if err != nil {
		return domain.Clock{}, fmt.Errorf("failed to reload plan %s: %w", planID, err)
	}
	recorded := plan.FindBatch(batch.BatchID)
	if recorded == nil {
		return domain.Clock{}, fmt.Errorf("%w: batch %d vanished from plan %s", apperrors.ErrInternal, batch.BatchID, planID)
	}
	if issues := postings.CompareBatch(batch.BatchID, recorded.Postings, batch.Postings); len(issues) > 0 {
		return domain.Clock{}, apperrors.NewInvalidPostingParams(issues...)
	}
	return plan.Clock, nil
}

func (s *planService) CommitPlan(ctx context.Context, plan domain.Plan, clock domain.Clock) (domain.Clock, error) {
	return s.finalize(ctx, plan, clock, domain.PlanCommitted, domain.EventPlanCommitted)
}

func (s *planService) RollbackPlan(ctx context.Context, plan domain.Plan, clock domain.Clock) (domain.Clock, error) {
	return s.finalize(ctx, plan, clock, domain.PlanRolledBack, domain.EventPlanRolledBack)
}

// finalize validates the submitted plan against the recorded one and moves it
// to the target terminal status. Already-terminal plans make the call an
// idempotent no-op returning the plan's existing clock, whichever terminal
// status it has.
func (s *planService) finalize(ctx context.Context, submitted domain.Plan, clock domain.Clock, target domain.PlanStatus, kind domain.PlanEventKind) (domain.Clock, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if submitted.PlanID == "" {
		return domain.Clock{}, fmt.Errorf("%w: plan id is required", apperrors.ErrValidation)
	}
	if _, err := s.clocks.EnsureReady(ctx, clock); err != nil {
		return domain.Clock{}, err
	}

	mu := s.getPlanLock(submitted.PlanID)
	mu.Lock()
	defer mu.Unlock()

	recorded, err := s.planRepo.FindPlanByID(ctx, submitted.PlanID)
	if errors.Is(err, apperrors.ErrPlanNotFound) {
		issues := postings.ComparePlan(nil, submitted.Batches)
		if len(issues) == 0 {
			issues = []apperrors.PostingIssue{{Index: -1, Reason: "plan has no recorded batches"}}
		}
		return domain.Clock{}, apperrors.NewInvalidPostingParams(issues...)
	}
	if err != nil {
		return domain.Clock{}, fmt.Errorf("failed to load plan %s: %w", submitted.PlanID, err)
	}

	if issues := postings.ComparePlan(recorded.Batches, submitted.Batches); len(issues) > 0 {
		return domain.Clock{}, apperrors.NewInvalidPostingParams(issues...)
	}

	if recorded.Terminal() {
		logger.Info("plan already terminal",
			slog.String("plan_id", recorded.PlanID),
			slog.String("status", string(recorded.Status)))
		return recorded.Clock, nil
	}

	next := s.clocks.Next()
	if err := s.planRepo.TransitionPlan(ctx, recorded.PlanID, target, next); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// Lost the transition race to another replica; its outcome stands.
			current, ferr := s.planRepo.FindPlanByID(ctx, recorded.PlanID)
			if ferr != nil {
				return domain.Clock{}, fmt.Errorf("failed to reload plan %s: %w", recorded.PlanID, ferr)
			}
			return current.Clock, nil
		}
		return domain.Clock{}, fmt.Errorf("failed to transition plan %s to %s: %w", recorded.PlanID, target, err)
	}
	s.clocks.Observe(next)

	s.publish(ctx, domain.PlanEvent{
		EventID:    uuid.NewString(),
		PlanID:     recorded.PlanID,
		Kind:       kind,
		Clock:      next,
		OccurredAt: time.Now().UTC(),
	})
	logger.Info("plan transitioned",
		slog.String("plan_id", recorded.PlanID),
		slog.String("status", string(target)),
		slog.String("clock", next.String()))
	return next, nil
}

func (s *planService) GetPlanByID(ctx context.Context, planID string) (*domain.Plan, error) {
	if planID == "" {
		return nil, fmt.Errorf("%w: plan id is required", apperrors.ErrValidation)
	}
	return s.planRepo.FindPlanByID(ctx, planID)
}

func (s *planService) publish(ctx context.Context, event domain.PlanEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishPlanTransition(ctx, event); err != nil {
		middleware.GetLoggerFromCtx(ctx).Warn("failed to publish plan event",
			slog.String("kind", string(event.Kind)),
			slog.String("plan_id", event.PlanID),
			slog.String("error", err.Error()))
	}
}

// batchAccountIDs collects the distinct account ids a batch references, in
// first-appearance order.
func batchAccountIDs(items []domain.Posting) []string {
	seen := make(map[string]struct{}, len(items)*2)
	ids := make([]string, 0, len(items)*2)
	for _, p := range items {
		for _, id := range []string{p.FromAccountID, p.ToAccountID} {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// missingAccounts builds the account records a batch must create, ordered by
// id so store writes are deterministic.
func missingAccounts(items []domain.Posting, existing map[string]domain.Account, now time.Time) []domain.Account {
	missing := postings.MissingAccounts(items, existing)
	accounts := make([]domain.Account, 0, len(missing))
	for accountID, currency := range missing {
		accounts = append(accounts, domain.Account{
			AccountID:    accountID,
			CurrencyCode: currency,
			CreatedAt:    now,
		})
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].AccountID < accounts[j].AccountID })
	return accounts
}
