// Package config loads es2loki-transfer configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for a transfer run.
type Config struct {
	HTTP    HTTPConfig
	Elastic ElasticConfig
	Loki    LokiConfig
	State   StateConfig
	Secrets SecretsConfig

	DevMode bool
	DryRun  bool
}

// HTTPConfig holds the ambient health/metrics HTTP surface configuration.
// Addr is empty by default: the surface is optional, not a control plane.
type HTTPConfig struct {
	Addr string
}

// ElasticConfig holds source Elasticsearch configuration.
type ElasticConfig struct {
	Hosts         []string
	Username      string
	Password      string
	Index         string
	BatchSize     int
	Timeout       time.Duration
	MaxDate       string // RFC3339; empty means unbounded
	TimestampField string
}

// LokiConfig holds sink Loki configuration.
type LokiConfig struct {
	URL            string
	Username       string
	Password       string
	TenantID       string
	BatchSize      int // flush threshold in bytes
	PoolLoadFactor int // sink queue depth
	PushMode       string // "json", "gzip", "pb"
	WaitTimeout    time.Duration
}

// StateConfig holds checkpoint store configuration.
type StateConfig struct {
	StartOver bool
	Mode      string // "none" (alias "dummy"), "db", "redis"
	DBURL     string
	JobName   string
	DryRun    bool
}

// SecretsConfig holds credential-resolution configuration.
type SecretsConfig struct {
	Provider string // "env", "encrypted", "aws-sm", "vault", "gcp-sm"
}

// Load loads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		HTTP: HTTPConfig{
			Addr: getEnv("HTTP_ADDR", ""),
		},
		Elastic: ElasticConfig{
			Hosts:          getEnvSlice("ELASTIC_HOSTS", []string{"http://localhost:9200"}),
			Username:       getEnv("ELASTIC_USER", ""),
			Password:       getEnv("ELASTIC_PASSWORD", ""),
			Index:          getEnv("ELASTIC_INDEX", ""),
			BatchSize:      getEnvInt("ELASTIC_BATCH_SIZE", 3000),
			Timeout:        getEnvDuration("ELASTIC_TIMEOUT", 120*time.Second),
			MaxDate:        getEnv("ELASTIC_MAX_DATE", ""),
			TimestampField: getEnv("ELASTIC_TIMESTAMP_FIELD", "@timestamp"),
		},
		Loki: LokiConfig{
			URL:            getEnv("LOKI_URL", "http://localhost:3100"),
			Username:       getEnv("LOKI_USERNAME", ""),
			Password:       getEnv("LOKI_PASSWORD", ""),
			TenantID:       getEnv("LOKI_TENANT_ID", ""),
			BatchSize:      getEnvInt("LOKI_BATCH_SIZE", 1*1024*1024),
			PoolLoadFactor: getEnvInt("LOKI_POOL_LOAD_FACTOR", 10),
			PushMode:       getEnv("LOKI_PUSH_MODE", "pb"),
			WaitTimeout:    getEnvDuration("LOKI_WAIT_TIMEOUT", 0),
		},
		State: StateConfig{
			StartOver: getEnvBool("STATE_START_OVER", false),
			Mode:      getEnv("STATE_MODE", "none"),
			DBURL:     getEnv("STATE_DB_URL", ""),
			JobName:   getEnv("STATE_JOB_NAME", "es2loki-transfer"),
		},
		Secrets: SecretsConfig{
			Provider: getEnv("SECRETS_PROVIDER", "env"),
		},
		DevMode: getEnvBool("DEV", false),
		DryRun:  getEnvBool("DRY_RUN", false),
	}
	cfg.State.DryRun = cfg.DryRun

	if cfg.Elastic.Index == "" {
		return nil, fmt.Errorf("ELASTIC_INDEX is required")
	}

	switch cfg.State.Mode {
	case "none", "dummy", "db", "redis":
	default:
		return nil, fmt.Errorf("unknown STATE_MODE %q: want none, db, or redis", cfg.State.Mode)
	}

	switch cfg.Loki.PushMode {
	case "json", "gzip", "pb":
	default:
		return nil, fmt.Errorf("unknown LOKI_PUSH_MODE %q: want json, gzip, or pb", cfg.Loki.PushMode)
	}

	return cfg, nil
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
