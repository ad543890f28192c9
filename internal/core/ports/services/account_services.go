package services

import (
	"context"

	"github.com/trestleworks/planledger/internal/core/domain"
)

// AccountReaderSvc defines read operations for account data.
type AccountReaderSvc interface {
	// GetAccountByID retrieves an account, gated on the requested clock.
	GetAccountByID(ctx context.Context, accountID string, clock domain.Clock) (*domain.Account, error)
}

// AccountWriterSvc defines explicit account creation, used by the bulk
// loader's seeding pass. Live traffic creates accounts lazily via Hold.
type AccountWriterSvc interface {
	// CreateAccount persists an account record. Identical re-creation is a
	// no-op; a currency change on an existing id fails with ErrValidation.
	CreateAccount(ctx context.Context, account domain.Account) error
}

// AccountSvcFacade combines all account-related service interfaces
type AccountSvcFacade interface {
	AccountReaderSvc
	AccountWriterSvc
}
