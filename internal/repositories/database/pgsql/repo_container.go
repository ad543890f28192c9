package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"
	portsrepo "github.com/trestleworks/planledger/internal/core/ports/repositories"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	accountRepo := newPgxAccountRepository(dbPool)
	planRepo := newPgxPlanRepository(dbPool)
	clockRepo := newPgxClockRepository(dbPool)

	return portsrepo.RepositoryProvider{
		AccountRepo: accountRepo,
		PlanRepo:    planRepo,
		ClockRepo:   clockRepo,
	}
}
