package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/trestleworks/planledger/internal/apperrors"
	"github.com/trestleworks/planledger/internal/core/domain"
	portsrepo "github.com/trestleworks/planledger/internal/core/ports/repositories"
	portssvc "github.com/trestleworks/planledger/internal/core/ports/services"
)

// balanceService derives account balances from postings and plan statuses.
// Nothing is cached: every read folds the account's full posting history from
// one consistent store snapshot.
type balanceService struct {
	planRepo    portsrepo.PlanReader
	accountRepo portsrepo.AccountReader
	clocks      portssvc.ClockManagerSvc
}

// NewBalanceService creates a new BalanceService.
func NewBalanceService(planRepo portsrepo.PlanReader, accountRepo portsrepo.AccountReader, clocks portssvc.ClockManagerSvc) portssvc.BalanceSvcFacade {
	return &balanceService{
		planRepo:    planRepo,
		accountRepo: accountRepo,
		clocks:      clocks,
	}
}

// Ensure balanceService implements the portssvc.BalanceSvcFacade interface
var _ portssvc.BalanceSvcFacade = (*balanceService)(nil)

func (s *balanceService) GetBalanceByID(ctx context.Context, accountID string, clock domain.Clock) (*domain.Balance, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id is required", apperrors.ErrValidation)
	}

	usedClock, err := s.clocks.EnsureReady(ctx, clock)
	if err != nil {
		return nil, err
	}

	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	items, err := s.planRepo.FindPostingsByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load postings for account %s: %w", accountID, err)
	}

	balance := &domain.Balance{
		AccountID:          account.AccountID,
		CurrencyCode:       account.CurrencyCode,
		OwnAmount:          decimal.Zero,
		MinAvailableAmount: decimal.Zero,
		MaxAvailableAmount: decimal.Zero,
		Clock:              usedClock,
	}

	for _, item := range items {
		// A posting debits From and credits To; one referencing the account
		// on both sides nets to zero.
		delta := decimal.Zero
		if item.Posting.ToAccountID == accountID {
			delta = delta.Add(item.Posting.Amount)
		}
		if item.Posting.FromAccountID == accountID {
			delta = delta.Sub(item.Posting.Amount)
		}

		switch item.PlanStatus {
		case domain.PlanCommitted:
			balance.OwnAmount = balance.OwnAmount.Add(delta)
			balance.MinAvailableAmount = balance.MinAvailableAmount.Add(delta)
			balance.MaxAvailableAmount = balance.MaxAvailableAmount.Add(delta)
		case domain.PlanOpen:
			// Pending credits only widen the upper bound, pending debits only
			// the lower one: either could still commit or vanish.
			if delta.IsPositive() {
				balance.MaxAvailableAmount = balance.MaxAvailableAmount.Add(delta)
			} else if delta.IsNegative() {
				balance.MinAvailableAmount = balance.MinAvailableAmount.Add(delta)
			}
		case domain.PlanRolledBack:
			// Discarded plans never touch balances.
		}
	}

	return balance, nil
}
