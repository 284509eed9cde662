package repository

import (
	"context"
	"fmt"
	"log"

	"moon-oracle/backend/internal/config"
	"moon-oracle/backend/internal/db"
	"moon-oracle/backend/internal/db/migrate"
)

// Open returns the Repository selected by cfg.StoreBackend. For postgres it applies pending migrations first.
func Open(ctx context.Context, cfg *config.Config) (Repository, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Printf("session repository: using in-memory store; counts are lost on restart")
		return NewMemoryRepository(), nil
	case config.BackendPostgres:
		if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil {
			return nil, fmt.Errorf("session repository: migrate: %w", err)
		}
		sqlDB, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("session repository: postgres: %w", err)
		}
		return NewPostgresRepository(sqlDB), nil
	case config.BackendSQLite:
		return OpenSQLite(cfg.SQLitePath)
	case config.BackendRedis:
		return OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	case config.BackendMongo:
		return OpenMongo(ctx, cfg.DatabaseURL, cfg.DatabaseName)
	default:
		return nil, fmt.Errorf("session repository: unknown backend %q", cfg.StoreBackend)
	}
}
