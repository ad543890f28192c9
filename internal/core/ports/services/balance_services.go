package services

import (
	"context"

	"github.com/trestleworks/planledger/internal/core/domain"
)

// BalanceSvcFacade defines balance derivation operations.
type BalanceSvcFacade interface {
	// GetBalanceByID derives the account's balance from every posting that
	// references it. The read is gated on clock: if this replica cannot
	// satisfy it after one refresh from the store, ErrNotReady is returned.
	GetBalanceByID(ctx context.Context, accountID string, clock domain.Clock) (*domain.Balance, error)
}
