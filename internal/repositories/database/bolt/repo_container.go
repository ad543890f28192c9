package bolt

import (
	portsrepo "github.com/trestleworks/planledger/internal/core/ports/repositories"
)

func NewRepositoryProvider(store *Store) portsrepo.RepositoryProvider {
	accountRepo := newBoltAccountRepository(store)
	planRepo := newBoltPlanRepository(store)
	clockRepo := newBoltClockRepository(store)

	return portsrepo.RepositoryProvider{
		AccountRepo: accountRepo,
		PlanRepo:    planRepo,
		ClockRepo:   clockRepo,
	}
}
