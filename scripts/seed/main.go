package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/medconnect/medconnect/internal/app"
	"github.com/medconnect/medconnect/internal/pharmacy"
)

func main() {
	ctx := context.Background()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		logger.Error("open record store", slog.String("driver", cfg.StoreDriver), slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	schema, ok := store.(app.SchemaStore)
	if !ok {
		logger.Info("store driver has no schema, nothing to seed", slog.String("driver", cfg.StoreDriver))
		return
	}

	logger.Info("→ migrating schema", slog.String("driver", cfg.StoreDriver))
	if err := schema.Migrate(ctx); err != nil {
		logger.Error("migrate", slog.Any("error", err))
		os.Exit(1)
	}

	data := pharmacy.SampleData()
	logger.Info("→ seeding sample data",
		slog.Int("medicines", len(data.Medicines)),
		slog.Int("suppliers", len(data.Suppliers)),
		slog.Int("purchases", len(data.Purchases)),
		slog.Int("sales", len(data.Sales)),
	)
	if err := schema.Seed(ctx, data); err != nil {
		logger.Error("seed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("seed complete")
}
