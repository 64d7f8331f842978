package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/infrastructure/db/memory"
	mongodb "github.com/99minutos/auth-service/internal/infrastructure/db/mongo"
	"github.com/99minutos/auth-service/internal/infrastructure/db/postgres"
	"github.com/99minutos/auth-service/internal/pkg/config"
)

// accountStore is an account repository that the readiness probe can ping.
type accountStore interface {
	ports.AccountRepository
	Ping(ctx context.Context) error
}

// openStore connects the repository selected by STORE_DRIVER. The returned
// close function releases its connections.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (accountStore, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		log.Warn().Msg("using in-memory account store, accounts are lost on restart")
		return memory.NewAccountRepository(), func() {}, nil

	case config.DriverMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }

		repo := mongodb.NewAccountRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("mongo: ensure indexes: %w", err)
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")
		return repo, closeFn, nil

	case config.DriverPostgres:
		if cfg.Postgres.AutoMigrate {
			if err := migrateUp(cfg.Postgres.URL); err != nil {
				return nil, nil, err
			}
			log.Info().Msg("postgres migrations applied")
		}
		pool, err := postgres.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Msg("connected to postgres")
		return postgres.NewAccountRepository(pool), pool.Close, nil
	}

	return nil, nil, errors.New("unsupported store driver " + cfg.Store.Driver)
}

func migrateUp(databaseURL string) (err error) {
	m, err := postgres.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, m.Close()) }()
	return m.Up()
}
