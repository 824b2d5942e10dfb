package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/civicfix/civicfix-server/internal/config"
	"github.com/civicfix/civicfix-server/internal/repository"
	"github.com/civicfix/civicfix-server/migrations"
)

// OpenStore connects the backend named by cfg.Store.Driver. With migrate set, Postgres
// schema files are applied and Mongo indexes are ensured before the store is returned.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, migrate bool) (repository.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), nil

	case config.StorePostgres:
		pool, err := NewPostgresPool(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if migrate {
			if err := RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return repository.NewPostgresStore(pool), nil

	case config.StoreMongo:
		client, err := NewMongoClient(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, fmt.Errorf("connect mongodb: %w", err)
		}
		store := repository.NewMongoStore(client, cfg.Mongo.Database, cfg.Mongo.Transactions)
		if !store.Transactional() {
			logger.Warn("mongodb transactions disabled; multi-document writes are not atomic")
		}
		if migrate {
			if err := store.EnsureIndexes(ctx); err != nil {
				_ = store.Close(ctx)
				return nil, fmt.Errorf("ensure mongodb indexes: %w", err)
			}
			logger.Info("mongodb indexes ensured")
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
