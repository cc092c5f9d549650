package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"askgraph/backend/internal/app"
	"askgraph/backend/pkg/config"
)

func TestSeed_BuildsCommunityOnce(t *testing.T) {
	ctx := context.Background()
	core, err := app.New(ctx, &config.Config{
		Timezone:                "UTC",
		StoreBackend:            config.BackendBadger,
		BadgerInMemory:          true,
		StoreTimeout:            5 * time.Second,
		BreakerFailureThreshold: 5,
		BreakerTimeout:          time.Second,
	})
	require.NoError(t, err)
	defer core.Close(ctx)

	require.NoError(t, seed(ctx, core, "password123", zap.NewNop()))

	timeline, err := core.Feed.Timeline(ctx, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, timeline)
	for _, item := range timeline {
		assert.NotEqual(t, "alice", item.Author)
	}

	bookmarks, err := core.Feed.Bookmarks(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, bookmarks, 2, "alice follows bob and carol, who each asked one question")

	// a second run leaves the graph alone
	require.NoError(t, seed(ctx, core, "password123", zap.NewNop()))
	recent, err := core.Feed.RecentQuestions(ctx, "bob", 0)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}
