package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iho/walletledger/internal/adapter/http/handler"
	"github.com/iho/walletledger/internal/adapter/repository/memory"
	mongorepo "github.com/iho/walletledger/internal/adapter/repository/mongo"
	mysqlrepo "github.com/iho/walletledger/internal/adapter/repository/mysql"
	postgresrepo "github.com/iho/walletledger/internal/adapter/repository/postgres"
	"github.com/iho/walletledger/internal/infrastructure/config"
	mongoinfra "github.com/iho/walletledger/internal/infrastructure/mongo"
	mysqlinfra "github.com/iho/walletledger/internal/infrastructure/mysql"
	"github.com/iho/walletledger/internal/infrastructure/postgres"
	"github.com/iho/walletledger/internal/infrastructure/retry"
	"github.com/iho/walletledger/internal/usecase"
)

// storage is one backend's set of ledger ports.
type storage struct {
	scopes    usecase.ScopeManager
	accounts  usecase.AccountStore
	ledger    usecase.TransactionLedger
	outbox    usecase.OutboxRepository
	users     usecase.UserStore
	retryable retry.Classifier
	health    handler.HealthCheck
	close     func(ctx context.Context) error
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		return openMemory(), nil
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, log)
	case config.DriverMySQL:
		return openMySQL(ctx, cfg, log)
	case config.DriverMongo:
		return openMongo(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func openMemory() *storage {
	store := memory.NewStore()
	return &storage{
		scopes:    memory.NewScopeManager(store),
		accounts:  memory.NewAccountRepository(store),
		ledger:    memory.NewTransactionRepository(store),
		outbox:    memory.NewOutboxRepository(store),
		users:     memory.NewUserRepository(store),
		retryable: retry.Never,
		health:    handler.HealthCheck{Name: "memory", Check: func(context.Context) error { return nil }},
		close:     func(context.Context) error { return nil },
	}
}

func openPostgres(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	if cfg.DatabaseAutoMigrate {
		if err := postgres.RunMigrations(cfg.DatabaseURL, log); err != nil {
			return nil, err
		}
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Msg("connected to postgres")

	return &storage{
		scopes:    postgresrepo.NewTxManager(pool),
		accounts:  postgresrepo.NewAccountRepository(pool),
		ledger:    postgresrepo.NewTransactionRepository(pool),
		outbox:    postgresrepo.NewOutboxRepository(pool),
		users:     postgresrepo.NewUserRepository(pool),
		retryable: postgresrepo.IsRetryable,
		health:    handler.HealthCheck{Name: "postgres", Check: pool.Ping},
		close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}, nil
}

func openMySQL(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	client, err := mysqlinfra.NewClient(ctx, mysqlinfra.Config{
		DSN:            cfg.MySQLDSN,
		MaxOpenConns:   cfg.DatabaseMaxConns,
		MaxIdleConns:   cfg.DatabaseMinConns,
		LogLevel:       cfg.LogLevel,
		ConnectTimeout: cfg.DatabaseTimeout,
	}, log)
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseAutoMigrate {
		if err := mysqlrepo.Migrate(client.DB()); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to migrate mysql schema: %w", err)
		}
	}
	log.Info().Msg("connected to mysql")

	db := client.DB()
	return &storage{
		scopes:    mysqlrepo.NewTxManager(db),
		accounts:  mysqlrepo.NewAccountRepository(db),
		ledger:    mysqlrepo.NewTransactionRepository(db),
		outbox:    mysqlrepo.NewOutboxRepository(db),
		users:     mysqlrepo.NewUserRepository(db),
		retryable: mysqlrepo.IsRetryable,
		health:    handler.HealthCheck{Name: "mysql", Check: client.Ping},
		close:     func(context.Context) error { return client.Close() },
	}, nil
}

func openMongo(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	client, err := mongoinfra.NewClient(ctx, mongoinfra.Config{
		URI:                    cfg.MongoURI,
		Database:               cfg.MongoDatabase,
		MaxPoolSize:            uint64(cfg.DatabaseMaxConns),
		ServerSelectionTimeout: cfg.DatabaseTimeout,
	}, log)
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseAutoMigrate {
		if err := mongorepo.EnsureIndexes(ctx, client.Database()); err != nil {
			_ = client.Close(ctx)
			return nil, fmt.Errorf("failed to create mongo indexes: %w", err)
		}
	}
	log.Info().Msg("connected to mongo")

	db := client.Database()
	return &storage{
		scopes:    mongorepo.NewSessionManager(client.Client()),
		accounts:  mongorepo.NewAccountRepository(db),
		ledger:    mongorepo.NewTransactionRepository(db),
		outbox:    mongorepo.NewOutboxRepository(db),
		users:     mongorepo.NewUserRepository(db),
		retryable: mongorepo.IsRetryable,
		health:    handler.HealthCheck{Name: "mongo", Check: client.Ping},
		close:     client.Close,
	}, nil
}
