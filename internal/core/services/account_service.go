package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/trestleworks/planledger/internal/apperrors"
	"github.com/trestleworks/planledger/internal/core/domain"
	portsrepo "github.com/trestleworks/planledger/internal/core/ports/repositories"
	portssvc "github.com/trestleworks/planledger/internal/core/ports/services"
	"github.com/trestleworks/planledger/internal/middleware"
)

// accountService serves account lookups and the bulk loader's explicit
// account seeding. Live traffic creates accounts lazily inside Hold.
type accountService struct {
	accountRepo portsrepo.AccountRepositoryFacade
	clocks      portssvc.ClockManagerSvc
}

// NewAccountService creates a new AccountService.
func NewAccountService(accountRepo portsrepo.AccountRepositoryFacade, clocks portssvc.ClockManagerSvc) portssvc.AccountSvcFacade {
	return &accountService{
		accountRepo: accountRepo,
		clocks:      clocks,
	}
}

// Ensure accountService implements the portssvc.AccountSvcFacade interface
var _ portssvc.AccountSvcFacade = (*accountService)(nil)

func (s *accountService) GetAccountByID(ctx context.Context, accountID string, clock domain.Clock) (*domain.Account, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: account id is required", apperrors.ErrValidation)
	}
	if _, err := s.clocks.EnsureReady(ctx, clock); err != nil {
		return nil, err
	}
	return s.accountRepo.FindAccountByID(ctx, accountID)
}

func (s *accountService) CreateAccount(ctx context.Context, account domain.Account) error {
	if account.AccountID == "" {
		return fmt.Errorf("%w: account id is required", apperrors.ErrValidation)
	}
	if account.CurrencyCode == "" {
		return fmt.Errorf("%w: currency code is required", apperrors.ErrValidation)
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	err := s.accountRepo.SaveAccount(ctx, account)
	if errors.Is(err, apperrors.ErrDuplicate) {
		return fmt.Errorf("%w: account %s already exists with a different currency", apperrors.ErrValidation, account.AccountID)
	}
	if err != nil {
		return fmt.Errorf("failed to save account %s: %w", account.AccountID, err)
	}

	middleware.GetLoggerFromCtx(ctx).Debug("account saved",
		slog.String("account_id", account.AccountID),
		slog.String("currency", account.CurrencyCode))
	return nil
}
