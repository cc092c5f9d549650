package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "askgraph/backend/pkg/errors"
)

// Store backends
const (
	BackendNeo4j  = "neo4j"
	BackendBadger = "badger"
)

// Upvote counter policies
const (
	UpvotePolicyEveryCall = "every_call"
	UpvotePolicyOnce      = "once"
)

// Config holds all application configuration
type Config struct {
	// App
	Port     string
	Env      string
	LogLevel string
	Timezone string

	// Store
	StoreBackend string
	StoreTimeout time.Duration

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string

	// Badger (embedded)
	BadgerDir      string
	BadgerInMemory bool

	// Circuit breaker around the store
	BreakerFailureThreshold uint32
	BreakerTimeout          time.Duration

	// Social
	UpvotePolicy string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		LogLevel:                getEnv("LOG_LEVEL", ""),
		Timezone:                getEnv("TIMEZONE", "UTC"),
		StoreBackend:            strings.ToLower(getEnv("STORE_BACKEND", BackendNeo4j)),
		StoreTimeout:            time.Duration(getEnvInt("STORE_TIMEOUT_SECONDS", 10)) * time.Second,
		Neo4jURI:                getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:               getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:           getEnv("NEO4J_PASSWORD", "password"),
		Neo4jDatabase:           getEnv("NEO4J_DATABASE", ""),
		BadgerDir:               getEnv("BADGER_DIR", "data/askgraph"),
		BadgerInMemory:          getEnvBool("BADGER_IN_MEMORY", false),
		BreakerFailureThreshold: uint32(getEnvInt("BREAKER_FAILURE_THRESHOLD", 5)),
		BreakerTimeout:          time.Duration(getEnvInt("BREAKER_TIMEOUT_SECONDS", 30)) * time.Second,
		UpvotePolicy:            strings.ToLower(getEnv("UPVOTE_POLICY", UpvotePolicyEveryCall)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendNeo4j:
		if c.Neo4jURI == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_URI")
		}
		if c.Neo4jUser == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_USER")
		}
		if c.Neo4jPassword == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_PASSWORD")
		}
	case BackendBadger:
		if c.BadgerDir == "" && !c.BadgerInMemory {
			return apperrors.NewConfigMissingRequired("BADGER_DIR")
		}
	default:
		return apperrors.NewConfigValidationFailed("STORE_BACKEND", fmt.Sprintf("unknown backend %q", c.StoreBackend))
	}

	switch c.UpvotePolicy {
	case UpvotePolicyEveryCall, UpvotePolicyOnce:
	default:
		return apperrors.NewConfigValidationFailed("UPVOTE_POLICY", fmt.Sprintf("unknown policy %q", c.UpvotePolicy))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return apperrors.NewConfigValidationFailed("TIMEZONE", err.Error())
	}
	if c.BreakerFailureThreshold == 0 {
		return apperrors.NewConfigValidationFailed("BREAKER_FAILURE_THRESHOLD", "must be positive")
	}
	return nil
}

// Location returns the time zone used for calendar dates
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}
