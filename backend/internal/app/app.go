// Package app wires configuration into a ready set of core components.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"askgraph/backend/internal/clock"
	"askgraph/backend/internal/feed"
	"askgraph/backend/internal/graph"
	"askgraph/backend/internal/social"
	"askgraph/backend/internal/store"
	"askgraph/backend/pkg/config"
	"askgraph/backend/pkg/logger"
)

// App holds the long-lived components shared by every request
type App struct {
	Store  *store.Guard
	Repo   *graph.Repository
	Feed   *feed.Engine
	Social *social.Coordinator
}

// OpenStore opens the configured backend
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendBadger:
		s, err := store.OpenBadger(store.BadgerOptions{
			Dir:      cfg.BadgerDir,
			InMemory: cfg.BadgerInMemory,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendNeo4j:
		s, err := store.OpenNeo4j(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// New opens the store and builds the repository, feed engine and coordinator
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	loc := cfg.Location()
	policy, err := social.ParseUpvotePolicy(cfg.UpvotePolicy)
	if err != nil {
		return nil, err
	}

	backend, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	guarded := store.NewGuard(backend, store.GuardConfig{
		Name:             "graph-store-" + backend.Backend(),
		FailureThreshold: cfg.BreakerFailureThreshold,
		OpenTimeout:      cfg.BreakerTimeout,
		OperationTimeout: cfg.StoreTimeout,
	})

	repo := graph.NewRepository(guarded, clock.NewSystem(loc))
	logger.Named("app").Info("Core components ready",
		zap.String("backend", backend.Backend()),
		zap.String("timezone", loc.String()),
		zap.String("upvote_policy", policy.String()),
	)
	return &App{
		Store:  guarded,
		Repo:   repo,
		Feed:   feed.NewEngine(repo),
		Social: social.NewCoordinator(repo, policy),
	}, nil
}

// Close releases the store
func (a *App) Close(ctx context.Context) error {
	return a.Store.Close(ctx)
}
