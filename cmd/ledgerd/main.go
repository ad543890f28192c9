package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"

	portsevents "github.com/trestleworks/planledger/internal/core/ports/events"
	portsrepo "github.com/trestleworks/planledger/internal/core/ports/repositories"
	"github.com/trestleworks/planledger/internal/core/services"
	"github.com/trestleworks/planledger/internal/events/kafka"
	"github.com/trestleworks/planledger/internal/events/noop"
	"github.com/trestleworks/planledger/internal/handlers"
	"github.com/trestleworks/planledger/internal/middleware"
	"github.com/trestleworks/planledger/internal/platform/config"
	"github.com/trestleworks/planledger/internal/repositories/database/bolt"
	"github.com/trestleworks/planledger/internal/repositories/database/pgsql"
	"github.com/trestleworks/planledger/pkg/database"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// @title Plan Ledger API
// @version 1.0
// @description Double entry ledger with two phase plans and vector clock reads.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	repos, cleanup, err := buildRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup()

	publisher := buildPublisher(cfg, logger)
	defer func() {
		if cerr := publisher.Close(); cerr != nil {
			logger.Error("Error closing event publisher", slog.String("error", cerr.Error()))
		}
	}()

	// The container refreshes the replica clock from storage before serving.
	container, err := services.NewServiceContainer(ctx, cfg, repos, publisher)
	if err != nil {
		logger.Error("Failed to initialize services", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery, CORS)
	r.Use(
		middleware.StructuredLoggingMiddleware(logger),
		gin.Recovery(),
		middleware.CORSMiddleware(cfg.CORSAllowOrigins),
	)

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, container)

	logger.Info("Server starting",
		slog.String("port", cfg.Port),
		slog.String("driver", cfg.DatabaseDriver),
		slog.String("replica_id", cfg.ReplicaID),
	)
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// buildRepositories opens the configured storage backend and returns its
// repository provider plus a cleanup function for shutdown.
func buildRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.RepositoryProvider, func(), error) {
	switch cfg.DatabaseDriver {
	case config.DriverBolt:
		store, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return portsrepo.RepositoryProvider{}, nil, fmt.Errorf("open bolt store: %w", err)
		}
		logger.Info("Bolt store opened", slog.String("path", cfg.BoltPath))

		cleanup := func() {
			if cerr := store.Close(); cerr != nil {
				logger.Error("Error closing bolt store", slog.String("error", cerr.Error()))
			}
		}
		return bolt.NewRepositoryProvider(store), cleanup, nil

	default:
		dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
		if err != nil {
			return portsrepo.RepositoryProvider{}, nil, fmt.Errorf("initialize database pool: %w", err)
		}
		logger.Info("Database connection pool established.")

		if err := runMigrations(cfg.DatabaseURL, logger); err != nil {
			dbPool.Close()
			return portsrepo.RepositoryProvider{}, nil, err
		}

		cleanup := func() { database.ClosePgxPool(dbPool) }
		return pgsql.NewRepositoryProvider(dbPool), cleanup, nil
	}
}

// buildPublisher returns the Kafka publisher when brokers are configured and
// a no-op publisher otherwise.
func buildPublisher(cfg *config.Config, logger *slog.Logger) portsevents.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("No Kafka brokers configured, plan transition events disabled.")
		return noop.NewPublisher()
	}
	logger.Info("Kafka publisher enabled",
		slog.Any("brokers", cfg.KafkaBrokers),
		slog.String("topic", cfg.KafkaTopic),
	)
	return kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
}

// runMigrations applies all pending "up" migrations using a temporary
// database/sql connection. The pgx stdlib driver keeps it compatible with
// the main pool.
func runMigrations(databaseURL string, logger *slog.Logger) error {
	logger.Info("Running database migrations...")

	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open database connection for migrations: %w", err)
	}
	if err := migrationDB.Ping(); err != nil {
		migrationDB.Close()
		return fmt.Errorf("ping database for migrations: %w", err)
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		migrationDB.Close()
		return fmt.Errorf("create postgres driver instance for migrations: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		migrationDB.Close()
		return fmt.Errorf("create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		m.Close()
		return fmt.Errorf("apply migrations: %w", err)
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return fmt.Errorf("migration source error: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("migration database error: %w", dbErr)
	}

	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}
