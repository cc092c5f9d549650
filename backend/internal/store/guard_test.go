package store

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "askgraph/backend/pkg/errors"
)

// flakyStore fails every transaction with err
type flakyStore struct {
	err   error
	calls int
}

func (f *flakyStore) View(ctx context.Context, fn func(tx Tx) error) error {
	f.calls++
	return f.err
}

func (f *flakyStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	f.calls++
	return f.err
}

func (f *flakyStore) Ping(ctx context.Context) error  { return f.err }
func (f *flakyStore) Close(ctx context.Context) error { return nil }
func (f *flakyStore) Backend() string                 { return "flaky" }

func TestGuard_OpensAfterConsecutiveStoreFailures(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStore{err: apperrors.NewStoreUnavailable("view", stderrors.New("connection refused"))}
	g := NewGuard(inner, GuardConfig{Name: "test-open", FailureThreshold: 2, OpenTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		err := g.View(ctx, func(tx Tx) error { return nil })
		assert.True(t, apperrors.IsStoreUnavailable(err))
	}
	assert.Equal(t, "open", g.State())

	err := g.View(ctx, func(tx Tx) error { return nil })
	assert.True(t, apperrors.IsStoreUnavailable(err), "open breaker reports the store as unavailable")
	assert.Equal(t, 2, inner.calls, "open breaker must not reach the store")
}

func TestGuard_DomainErrorsDoNotTrip(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStore{err: apperrors.NewValidation("tags", "empty")}
	g := NewGuard(inner, GuardConfig{Name: "test-domain", FailureThreshold: 1, OpenTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		err := g.Update(ctx, func(tx Tx) error { return nil })
		assert.True(t, apperrors.IsValidation(err))
	}
	assert.Equal(t, "closed", g.State())
	assert.Equal(t, 3, inner.calls)
}

func TestGuard_PassesThroughToBadger(t *testing.T) {
	ctx := context.Background()
	g := NewGuard(newTestBadger(t), GuardConfig{Name: "test-badger", OperationTimeout: time.Second})

	require.NoError(t, g.Update(ctx, func(tx Tx) error {
		_, err := tx.UpsertNode(ctx, userRef("ada"), nil)
		return err
	}))
	require.NoError(t, g.View(ctx, func(tx Tx) error {
		n, err := tx.FindOne(ctx, userRef("ada"))
		require.NoError(t, err)
		assert.NotNil(t, n)
		return nil
	}))
	assert.Equal(t, "badger", g.Backend())
	assert.NoError(t, g.Ping(ctx))

	_, err := g.Query(ctx, "RETURN 1", nil)
	assert.ErrorIs(t, err, ErrQueryUnsupported)
	assert.False(t, apperrors.IsStoreUnavailable(err))
}

func TestGuard_WriteConflictsDoNotTrip(t *testing.T) {
	ctx := context.Background()
	inner := &flakyStore{err: apperrors.NewConflict("update", stderrors.New("Transaction Conflict. Please retry"))}
	g := NewGuard(inner, GuardConfig{Name: "test-conflict", FailureThreshold: 1, OpenTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		err := g.Update(ctx, func(tx Tx) error { return nil })
		assert.True(t, apperrors.IsConflict(err))
		assert.False(t, apperrors.IsStoreUnavailable(err))
	}
	assert.Equal(t, "closed", g.State())
	assert.Equal(t, 3, inner.calls)
}

func TestGuard_QueryWithoutQuerier(t *testing.T) {
	g := NewGuard(&flakyStore{}, GuardConfig{Name: "test-noquery"})
	_, err := g.Query(context.Background(), "RETURN 1", nil)
	assert.ErrorIs(t, err, ErrQueryUnsupported)
}
