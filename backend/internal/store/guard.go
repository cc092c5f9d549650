package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	apperrors "askgraph/backend/pkg/errors"
	"askgraph/backend/pkg/logger"
)

// GuardConfig configures a Guard
type GuardConfig struct {
	Name string
	// FailureThreshold is the number of consecutive store failures that opens the breaker
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again
	OpenTimeout time.Duration
	// OperationTimeout bounds each transaction; zero leaves the caller's deadline alone
	OperationTimeout time.Duration
}

// Guard decorates a Store with a circuit breaker, metrics and debug logging.
// Only store failures count against the breaker; validation, not-found and
// write-conflict errors raised inside a transaction pass through without tripping it.
type Guard struct {
	next    Store
	breaker *gobreaker.CircuitBreaker[struct{}]
	timeout time.Duration
	logger  *zap.Logger
}

// NewGuard wraps next
func NewGuard(next Store, cfg GuardConfig) *Guard {
	if cfg.Name == "" {
		cfg.Name = "graph-store"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	log := logger.Named("store.guard")

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			breakerState.WithLabelValues(name).Set(float64(to))
			log.Warn("Store circuit breaker changed state",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !apperrors.IsStoreUnavailable(err)
		},
	}

	return &Guard{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
		timeout: cfg.OperationTimeout,
		logger:  log,
	}
}

func (g *Guard) Backend() string { return g.next.Backend() }

// State returns the breaker state name
func (g *Guard) State() string {
	return g.breaker.State().String()
}

func (g *Guard) View(ctx context.Context, fn func(tx Tx) error) error {
	return g.run(ctx, "view", func(ctx context.Context) error {
		return g.next.View(ctx, fn)
	})
}

func (g *Guard) Update(ctx context.Context, fn func(tx Tx) error) error {
	return g.run(ctx, "update", func(ctx context.Context) error {
		return g.next.Update(ctx, fn)
	})
}

func (g *Guard) Ping(ctx context.Context) error {
	return g.run(ctx, "ping", g.next.Ping)
}

func (g *Guard) Close(ctx context.Context) error {
	return g.next.Close(ctx)
}

// Query forwards to the wrapped store when it supports pattern queries
func (g *Guard) Query(ctx context.Context, query string, params map[string]any) ([]Record, error) {
	q, ok := g.next.(Querier)
	if !ok {
		return nil, fmt.Errorf("%s: %w", g.next.Backend(), ErrQueryUnsupported)
	}
	var records []Record
	err := g.run(ctx, "query", func(ctx context.Context) error {
		var err error
		records, err = q.Query(ctx, query, params)
		return err
	})
	return records, err
}

func (g *Guard) run(ctx context.Context, op string, call func(ctx context.Context) error) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	_, err := g.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, call(ctx)
	})
	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		err = apperrors.NewStoreUnavailable(op, err)
	}
	elapsed := time.Since(start)
	recordOperation(g.next.Backend(), op, err, elapsed)

	if err != nil && apperrors.IsStoreUnavailable(err) {
		g.logger.Error("Store operation failed",
			zap.String("operation", op),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
	} else if apperrors.IsConflict(err) {
		g.logger.Warn("Store write conflict",
			zap.String("operation", op),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
	} else {
		g.logger.Debug("Store operation",
			zap.String("operation", op),
			zap.Duration("elapsed", elapsed),
		)
	}
	return err
}
