package app

import (
	"context"
	"fmt"

	"github.com/medconnect/medconnect/internal/pharmacy"
	"github.com/medconnect/medconnect/internal/platform/db"
)

// SchemaStore is a record store that owns its schema.
type SchemaStore interface {
	pharmacy.Store
	Migrate(ctx context.Context) error
	Seed(ctx context.Context, data pharmacy.Dataset) error
}

// OpenStore connects the record store selected by STORE_DRIVER. The memory
// driver serves the sample data set. The returned func releases the store.
func OpenStore(ctx context.Context, cfg *Config) (pharmacy.Store, func(), error) {
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			return nil, nil, err
		}
		return pharmacy.NewRepository(pool), pool.Close, nil
	case StoreDriverSQLite:
		store, err := pharmacy.OpenSQLite(ctx, cfg.SQLiteDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case StoreDriverMemory:
		store, err := pharmacy.NewFixtureStore(pharmacy.SampleData())
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// PrepareStore applies the schema when the store owns one and STORE_AUTO_MIGRATE
// is set. Stores without a schema are left untouched.
func PrepareStore(ctx context.Context, cfg *Config, store pharmacy.Store) error {
	schema, ok := store.(SchemaStore)
	if !ok || !cfg.StoreAutoMigrate {
		return nil
	}
	return schema.Migrate(ctx)
}
