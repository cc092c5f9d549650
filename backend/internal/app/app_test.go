package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askgraph/backend/internal/graph"
	"askgraph/backend/internal/social"
	"askgraph/backend/pkg/config"
)

func inMemoryConfig() *config.Config {
	return &config.Config{
		Timezone:                "UTC",
		StoreBackend:            config.BackendBadger,
		BadgerInMemory:          true,
		StoreTimeout:            5 * time.Second,
		BreakerFailureThreshold: 3,
		BreakerTimeout:          time.Second,
		UpvotePolicy:            config.UpvotePolicyOnce,
	}
}

func TestNew_BadgerInMemory(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, inMemoryConfig())
	require.NoError(t, err)
	defer a.Close(ctx)

	assert.Equal(t, "badger", a.Store.Backend())
	assert.Equal(t, social.UpvoteCountOnce, a.Social.Policy())
	require.NoError(t, a.Store.Ping(ctx))

	created, err := a.Social.Register(ctx, "ada", "hash")
	require.NoError(t, err)
	assert.True(t, created)

	q, err := a.Social.AddQuestion(ctx, "ada", "t", graph.ParseTags("go"), "x")
	require.NoError(t, err)
	items, err := a.Feed.QuestionDetail(ctx, q.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestNew_RejectsUnknownSettings(t *testing.T) {
	cfg := inMemoryConfig()
	cfg.UpvotePolicy = "sometimes"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)

	cfg = inMemoryConfig()
	cfg.StoreBackend = "sqlite"
	_, err = OpenStore(context.Background(), cfg)
	assert.Error(t, err)
}
