package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"go.uber.org/zap"

	"askgraph/backend/internal/app"
	"askgraph/backend/internal/clock"
	"askgraph/backend/internal/graph"
	"askgraph/backend/internal/store"
	"askgraph/backend/pkg/config"
	"askgraph/backend/pkg/logger"
)

func main() {
	timeout := flag.Duration("timeout", time.Minute, "Overall migration timeout")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting schema migration...", zap.String("backend", cfg.StoreBackend))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	s, err := app.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open store", zap.Error(err))
	}
	defer s.Close(context.Background())

	if err := s.Ping(ctx); err != nil {
		log.Fatal("Failed to reach store", zap.Error(err))
	}

	applied, err := migrate(ctx, s, clock.NewSystem(cfg.Location()), log)
	if err != nil {
		log.Fatal("Migration failed", zap.Error(err))
	}
	if applied {
		log.Info("Migration completed successfully")
	}
}

// migrate applies the schema when the backend has a query language and
// reports whether anything was applied.
func migrate(ctx context.Context, s store.Store, c clock.Clock, log *zap.Logger) (bool, error) {
	q, ok := s.(store.Querier)
	if !ok {
		// Badger keys nodes by their unique property, so there is nothing to create
		log.Info("Backend enforces uniqueness through its key layout; no schema to apply",
			zap.String("backend", s.Backend()),
		)
		return false, nil
	}

	repo := graph.NewRepository(s, c)
	if err := repo.EnsureSchema(ctx, q); err != nil {
		if errors.Is(err, store.ErrQueryUnsupported) {
			log.Info("Backend does not support schema queries; nothing to apply",
				zap.String("backend", s.Backend()),
			)
			return false, nil
		}
		return false, err
	}
	return true, nil
}
