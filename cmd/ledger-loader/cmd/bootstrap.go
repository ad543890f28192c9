package cmd

import (
	"context"
	"fmt"
	"log/slog"

	portsevents "github.com/trestleworks/planledger/internal/core/ports/events"
	portsrepo "github.com/trestleworks/planledger/internal/core/ports/repositories"
	portssvc "github.com/trestleworks/planledger/internal/core/ports/services"
	"github.com/trestleworks/planledger/internal/core/services"
	"github.com/trestleworks/planledger/internal/events/kafka"
	"github.com/trestleworks/planledger/internal/events/noop"
	"github.com/trestleworks/planledger/internal/platform/config"
	"github.com/trestleworks/planledger/internal/repositories/database/bolt"
	"github.com/trestleworks/planledger/internal/repositories/database/pgsql"
	"github.com/trestleworks/planledger/pkg/database"
)

// openLedger opens the configured store and builds the same service
// container ledgerd runs, with a no-op publisher unless Kafka brokers are
// configured. The returned cleanup closes everything in reverse order.
func openLedger(ctx context.Context) (portsrepo.RepositoryProvider, *portssvc.ServiceContainer, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return portsrepo.RepositoryProvider{}, nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	var repos portsrepo.RepositoryProvider
	var closeStore func()

	switch cfg.DatabaseDriver {
	case config.DriverBolt:
		store, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return portsrepo.RepositoryProvider{}, nil, nil, fmt.Errorf("open bolt store: %w", err)
		}
		repos = bolt.NewRepositoryProvider(store)
		closeStore = func() {
			if cerr := store.Close(); cerr != nil {
				slog.Error("Error closing bolt store", slog.String("error", cerr.Error()))
			}
		}

	default:
		dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
		if err != nil {
			return portsrepo.RepositoryProvider{}, nil, nil, fmt.Errorf("initialize database pool: %w", err)
		}
		repos = pgsql.NewRepositoryProvider(dbPool)
		closeStore = func() { database.ClosePgxPool(dbPool) }
	}

	var publisher portsevents.Publisher = noop.NewPublisher()
	if len(cfg.KafkaBrokers) > 0 {
		publisher = kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	container, err := services.NewServiceContainer(ctx, cfg, repos, publisher)
	if err != nil {
		closeStore()
		return portsrepo.RepositoryProvider{}, nil, nil, fmt.Errorf("initialize services: %w", err)
	}

	cleanup := func() {
		if cerr := publisher.Close(); cerr != nil {
			slog.Error("Error closing event publisher", slog.String("error", cerr.Error()))
		}
		closeStore()
	}
	return repos, container, cleanup, nil
}
