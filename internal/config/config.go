/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/friendsincode/signboard/internal/timeline"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// EventBusBackend selects how audit and campaign events leave the process.
type EventBusBackend string

const (
	EventBusMemory EventBusBackend = "memory"
	EventBusRedis  EventBusBackend = "redis"
	EventBusNATS   EventBusBackend = "nats"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment   string
	HTTPBind      string
	HTTPPort      int
	DBBackend     DatabaseBackend
	DBDSN         string
	JWTSigningKey string
	JWTTTL        time.Duration
	MetricsBind   string
	InstanceID    string

	// Stacks API
	StacksBaseURL   string
	StacksUsername  string
	StacksPassword  string
	StacksTimeout   time.Duration
	StacksRateLimit float64 // requests per second, 0 disables
	StacksBurst     int

	// Aggregation
	FetchConcurrency int
	SlotFetchTimeout time.Duration
	LeaderOrder      timeline.LeaderOrder

	// Event relay
	EventBus      EventBusBackend
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NATSURL       string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnvAny([]string{"SIGNBOARD_ENV", "NODE_ENV"}, "development"),
		HTTPBind:      getEnvAny([]string{"SIGNBOARD_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:      getEnvIntAny([]string{"SIGNBOARD_HTTP_PORT", "PORT"}, 8080),
		DBBackend:     DatabaseBackend(getEnvAny([]string{"SIGNBOARD_DB_BACKEND"}, string(DatabasePostgres))),
		DBDSN:         getEnvAny([]string{"SIGNBOARD_DB_DSN", "DATABASE_URL"}, ""),
		JWTSigningKey: getEnvAny([]string{"SIGNBOARD_JWT_SIGNING_KEY"}, ""),
		JWTTTL:        time.Duration(getEnvIntAny([]string{"SIGNBOARD_JWT_TTL_MINUTES"}, 15*60)) * time.Minute,
		MetricsBind:   getEnvAny([]string{"SIGNBOARD_METRICS_BIND"}, "127.0.0.1:9000"),
		InstanceID:    getEnvAny([]string{"SIGNBOARD_INSTANCE_ID", "HOSTNAME"}, ""),

		StacksBaseURL:   getEnvAny([]string{"SIGNBOARD_STACKS_BASE_URL", "STACKS_BASE_URL"}, "https://stacks.targetr.net"),
		StacksUsername:  getEnvAny([]string{"SIGNBOARD_STACKS_USERNAME", "STACKS_USERNAME"}, ""),
		StacksPassword:  getEnvAny([]string{"SIGNBOARD_STACKS_PASSWORD", "STACKS_PASSWORD"}, ""),
		StacksTimeout:   time.Duration(getEnvIntAny([]string{"SIGNBOARD_STACKS_TIMEOUT_SECONDS"}, 30)) * time.Second,
		StacksRateLimit: getEnvFloatAny([]string{"SIGNBOARD_STACKS_RATE_LIMIT"}, 10),
		StacksBurst:     getEnvIntAny([]string{"SIGNBOARD_STACKS_BURST"}, 5),

		FetchConcurrency: getEnvIntAny([]string{"SIGNBOARD_FETCH_CONCURRENCY"}, 8),
		SlotFetchTimeout: time.Duration(getEnvIntAny([]string{"SIGNBOARD_SLOT_FETCH_TIMEOUT_SECONDS"}, 10)) * time.Second,

		EventBus:      EventBusBackend(strings.ToLower(getEnvAny([]string{"SIGNBOARD_EVENT_BUS"}, string(EventBusMemory)))),
		RedisAddr:     getEnvAny([]string{"SIGNBOARD_REDIS_ADDR", "REDIS_ADDR"}, "localhost:6379"),
		RedisPassword: getEnvAny([]string{"SIGNBOARD_REDIS_PASSWORD", "REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"SIGNBOARD_REDIS_DB"}, 0),
		NATSURL:       getEnvAny([]string{"SIGNBOARD_NATS_URL", "NATS_URL"}, "nats://localhost:4222"),

		TracingEnabled:    getEnvBoolAny([]string{"SIGNBOARD_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"SIGNBOARD_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"SIGNBOARD_TRACING_SAMPLE_RATE"}, 1.0),
	}

	order, err := timeline.ParseLeaderOrder(getEnvAny([]string{"SIGNBOARD_LEADER_ORDER"}, string(timeline.OrderFetch)))
	if err != nil {
		return nil, fmt.Errorf("SIGNBOARD_LEADER_ORDER: %w", err)
	}
	cfg.LeaderOrder = order

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("SIGNBOARD_DB_DSN or DATABASE_URL must be provided")
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("SIGNBOARD_JWT_SIGNING_KEY must be provided")
	}

	if cfg.StacksUsername == "" || cfg.StacksPassword == "" {
		return nil, fmt.Errorf("SIGNBOARD_STACKS_USERNAME and SIGNBOARD_STACKS_PASSWORD (or STACKS_USERNAME and STACKS_PASSWORD) must be provided")
	}

	switch cfg.EventBus {
	case EventBusMemory, EventBusRedis, EventBusNATS:
	default:
		return nil, fmt.Errorf("unsupported event bus %q", cfg.EventBus)
	}

	if cfg.FetchConcurrency < 1 {
		return nil, fmt.Errorf("SIGNBOARD_FETCH_CONCURRENCY must be at least 1, got %d", cfg.FetchConcurrency)
	}
	if cfg.SlotFetchTimeout <= 0 {
		return nil, fmt.Errorf("SIGNBOARD_SLOT_FETCH_TIMEOUT_SECONDS must be positive")
	}
	if cfg.StacksRateLimit < 0 {
		return nil, fmt.Errorf("SIGNBOARD_STACKS_RATE_LIMIT must not be negative")
	}
	if cfg.TracingSampleRate < 0 || cfg.TracingSampleRate > 1 {
		return nil, fmt.Errorf("SIGNBOARD_TRACING_SAMPLE_RATE must be between 0 and 1, got %v", cfg.TracingSampleRate)
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"STACKS_USERNAME": "use SIGNBOARD_STACKS_USERNAME",
		"STACKS_PASSWORD": "use SIGNBOARD_STACKS_PASSWORD",
		"DATABASE_URL":    "use SIGNBOARD_DB_DSN",
		"NODE_ENV":        "use SIGNBOARD_ENV",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// ListenAddr returns the HTTP listen address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPBind, c.HTTPPort)
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
