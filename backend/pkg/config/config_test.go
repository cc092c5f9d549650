package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "askgraph/backend/pkg/errors"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("UPVOTE_POLICY", "")
	t.Setenv("TIMEZONE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendNeo4j, cfg.StoreBackend)
	assert.Equal(t, UpvotePolicyEveryCall, cfg.UpvotePolicy)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Equal(t, 10*time.Second, cfg.StoreTimeout)
}

func TestLoad_BadgerInMemory(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Badger")
	t.Setenv("BADGER_IN_MEMORY", "true")
	t.Setenv("UPVOTE_POLICY", "once")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendBadger, cfg.StoreBackend)
	assert.True(t, cfg.BadgerInMemory)
	assert.Equal(t, UpvotePolicyOnce, cfg.UpvotePolicy)
}

func TestValidate_Rejects(t *testing.T) {
	base := Config{
		StoreBackend:            BackendNeo4j,
		Neo4jURI:                "bolt://localhost:7687",
		Neo4jUser:               "neo4j",
		Neo4jPassword:           "secret",
		Timezone:                "UTC",
		UpvotePolicy:            UpvotePolicyEveryCall,
		BreakerFailureThreshold: 3,
	}
	require.NoError(t, base.Validate())

	unknown := base
	unknown.StoreBackend = "postgres"
	err := unknown.Validate()
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeConfig))

	noURI := base
	noURI.Neo4jURI = ""
	var missing *apperrors.ErrConfigMissingRequired
	assert.ErrorAs(t, noURI.Validate(), &missing)
	assert.Equal(t, "NEO4J_URI", missing.Field)

	badPolicy := base
	badPolicy.UpvotePolicy = "sometimes"
	assert.Error(t, badPolicy.Validate())

	badZone := base
	badZone.Timezone = "Mars/Olympus_Mons"
	assert.Error(t, badZone.Validate())
}
