package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"askgraph/backend/internal/clock"
	"askgraph/backend/internal/store"
)

func TestMigrate_BadgerHasNothingToApply(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewBadgerInMemory()
	require.NoError(t, err)
	defer s.Close(ctx)

	applied, err := migrate(ctx, s, clock.NewManual(time.Now()), zap.NewNop())
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestMigrate_GuardedBadgerHasNothingToApply(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewBadgerInMemory()
	require.NoError(t, err)
	g := store.NewGuard(s, store.GuardConfig{Name: "migrate-test", FailureThreshold: 1, OpenTimeout: time.Minute})
	defer g.Close(ctx)

	applied, err := migrate(ctx, g, clock.NewManual(time.Now()), zap.NewNop())
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, "closed", g.State())
}

func TestMigrate_AppliesSchemaThroughQuerier(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewBadgerInMemory()
	require.NoError(t, err)
	defer s.Close(ctx)
	qs := &queryingStore{Store: s}

	applied, err := migrate(ctx, qs, clock.NewManual(time.Now()), zap.NewNop())
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Len(t, qs.queries, 5)
}

// queryingStore records schema queries on top of a real store
type queryingStore struct {
	store.Store
	queries []string
}

func (q *queryingStore) Query(_ context.Context, query string, _ map[string]any) ([]store.Record, error) {
	q.queries = append(q.queries, query)
	return nil, nil
}
