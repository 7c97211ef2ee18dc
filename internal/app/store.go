package app

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yungbote/hackfeed-backend/internal/data/db"
	"github.com/yungbote/hackfeed-backend/internal/data/docstore"
	"github.com/yungbote/hackfeed-backend/internal/data/memstore"
	"github.com/yungbote/hackfeed-backend/internal/data/repos"
	"github.com/yungbote/hackfeed-backend/internal/pkg/clock"
	"github.com/yungbote/hackfeed-backend/internal/pkg/logger"
)

// Store is the persistence backend picked by STORE_DRIVER. Exactly one of
// SQL, Mongo and Mem is set.
type Store struct {
	Driver string
	Repos  repos.Set

	SQL   *db.SQLService
	Mongo *mongo.Client
	Docs  *docstore.Store
	Mem   *memstore.Store
}

func openStore(ctx context.Context, cfg Config, clk clock.Clock, log *logger.Logger) (*Store, error) {
	log.Info("Opening store...", "driver", cfg.StoreDriver)
	switch cfg.StoreDriver {
	case StoreMemory:
		mem := memstore.New(clk)
		return &Store{Driver: StoreMemory, Repos: mem.Set(), Mem: mem}, nil

	case StoreMongo:
		client, err := docstore.Connect(ctx, docstore.ConnectOptions{URI: cfg.MongoURI})
		if err != nil {
			return nil, err
		}
		docs := docstore.New(client.Database(cfg.MongoDatabase), log)
		return &Store{Driver: StoreMongo, Repos: docs.Set(), Mongo: client, Docs: docs}, nil

	case StorePostgres, StoreSQLite:
		opts := db.Options{
			Driver:          cfg.StoreDriver,
			DSN:             cfg.DatabaseURL,
			Host:            cfg.PostgresHost,
			Port:            cfg.PostgresPort,
			User:            cfg.PostgresUser,
			Password:        cfg.PostgresPassword,
			Name:            cfg.PostgresName,
			SSLMode:         cfg.PostgresSSLMode,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		}
		if cfg.StoreDriver == StoreSQLite && opts.DSN == "" {
			opts.DSN = cfg.SQLitePath
		}
		sql, err := db.NewSQLService(opts, log)
		if err != nil {
			return nil, err
		}
		return &Store{Driver: cfg.StoreDriver, Repos: repos.NewGormSet(sql.DB(), log), SQL: sql}, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
}

// Migrate creates tables (SQL) or indexes (mongo). The memory store needs nothing.
func (s *Store) Migrate(ctx context.Context) error {
	switch {
	case s.SQL != nil:
		return db.AutoMigrateAll(s.SQL.DB().WithContext(ctx))
	case s.Docs != nil:
		return s.Docs.EnsureIndexes(ctx)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	switch {
	case s.SQL != nil:
		return s.SQL.Close()
	case s.Mongo != nil:
		return s.Mongo.Disconnect(ctx)
	}
	return nil
}
