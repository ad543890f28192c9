package services

import (
	"context"

	portsevents "github.com/trestleworks/planledger/internal/core/ports/events"
	portsrepo "github.com/trestleworks/planledger/internal/core/ports/repositories"
	portssvc "github.com/trestleworks/planledger/internal/core/ports/services"
	"github.com/trestleworks/planledger/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(ctx context.Context, cfg *config.Config, repos portsrepo.RepositoryProvider, publisher portsevents.Publisher) (*portssvc.ServiceContainer, error) {
	// The clock manager comes first since every other service reads from it.
	clocks, err := NewClockManager(ctx, cfg.ReplicaID, repos.ClockRepo)
	if err != nil {
		return nil, err
	}

	container := &portssvc.ServiceContainer{}
	container.Clocks = clocks
	container.Account = NewAccountService(repos.AccountRepo, clocks)
	container.Balance = NewBalanceService(repos.PlanRepo, repos.AccountRepo, clocks)
	container.Plan = NewPlanService(repos.PlanRepo, repos.AccountRepo, clocks, publisher)

	return container, nil
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.PlanSvcFacade    = (*planService)(nil)
	_ portssvc.BalanceSvcFacade = (*balanceService)(nil)
	_ portssvc.AccountSvcFacade = (*accountService)(nil)
)
