// Command seed loads the demo artisan catalog into the configured catalog
// store (CATALOG_STORE=mongo or sqlite).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fjod/artisan/internal/logger"
	"github.com/fjod/artisan/internal/repository"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	logger.Init(os.Stdout, "storefront-seed", getEnv("LOG_LEVEL", "info"))

	if err := run(); err != nil {
		slog.Error("seeding failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var catalog repository.CatalogRepository
	switch store := getEnv("CATALOG_STORE", "mongo"); store {
	case "mongo":
		db, err := repository.ConnectMongoDB(ctx,
			getEnv("MONGO_URI", "mongodb://localhost:27017"),
			getEnv("MONGO_DATABASE", "artisan"),
			"storefront-seed")
		if err != nil {
			return err
		}
		defer db.Client().Disconnect(context.Background())
		catalog = repository.NewMongoCatalogRepository(db)
	case "sqlite":
		repo, err := repository.NewSQLiteCatalogRepository(getEnv("SQLITE_PATH", "storefront.db"))
		if err != nil {
			return err
		}
		defer repo.Close()
		if err := repo.RunMigrations(getEnv("SQLITE_MIGRATIONS_DIR", "internal/repository/catalog_migrations")); err != nil {
			return err
		}
		catalog = repo
	default:
		return fmt.Errorf("cannot seed catalog store %q", store)
	}

	if err := catalog.Ping(ctx); err != nil {
		return fmt.Errorf("catalog not reachable: %w", err)
	}

	n, err := repository.SeedCatalog(ctx, catalog, repository.DemoProducts())
	if err != nil {
		return fmt.Errorf("inserted %d products before failing: %w", n, err)
	}
	slog.Info("catalog seeded", "inserted", n)
	return nil
}
