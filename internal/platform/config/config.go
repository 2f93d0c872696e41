// Package config loads application configuration from environment variables.
// All variables use the CAMPUS_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage modes.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server         ServerConfig
	Storage        string
	Database       DatabaseConfig
	Cache          CacheConfig
	Timeouts       TimeoutConfig
	Player         PlayerConfig
	Log            LogConfig
	CurriculumPath string
	// TeacherIDs are user ids provisioned with the teacher role.
	TeacherIDs []string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings. An empty URL disables caching.
type CacheConfig struct {
	URL     string
	UnitTTL time.Duration
}

// TimeoutConfig holds the deadlines applied to backend calls.
type TimeoutConfig struct {
	Request   time.Duration // per call
	Bootstrap time.Duration // hard top-level fallback
}

// PlayerConfig holds interactive activity settings.
type PlayerConfig struct {
	SessionTTL time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level     string
	Format    string
	AddSource bool
}

// Load reads configuration from environment variables with CAMPUS_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("CAMPUS_SERVER_PORT", 8080),
			Host: envStr("CAMPUS_SERVER_HOST", "0.0.0.0"),
		},
		Storage: strings.ToLower(envStr("CAMPUS_STORAGE", StoragePostgres)),
		Database: DatabaseConfig{
			URL:      envStr("CAMPUS_DATABASE_URL", ""),
			MaxConns: envInt("CAMPUS_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("CAMPUS_DATABASE_MIN_CONNS", 2),
		},
		Cache: CacheConfig{
			URL:     envStr("CAMPUS_CACHE_URL", ""),
			UnitTTL: envDuration("CAMPUS_CACHE_UNIT_TTL", 5*time.Minute),
		},
		Timeouts: TimeoutConfig{
			Request:   envDuration("CAMPUS_TIMEOUT_REQUEST", 10*time.Second),
			Bootstrap: envDuration("CAMPUS_TIMEOUT_BOOTSTRAP", 12*time.Second),
		},
		Player: PlayerConfig{
			SessionTTL: envDuration("CAMPUS_PLAYER_SESSION_TTL", 2*time.Hour),
		},
		Log: LogConfig{
			Level:     envStr("CAMPUS_LOG_LEVEL", "info"),
			Format:    envStr("CAMPUS_LOG_FORMAT", "json"),
			AddSource: envBool("CAMPUS_LOG_SOURCE", false),
		},
		CurriculumPath: envStr("CAMPUS_CURRICULUM_PATH", ""),
		TeacherIDs:     envList("CAMPUS_TEACHER_IDS"),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	switch c.Storage {
	case StoragePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("CAMPUS_DATABASE_URL is required when CAMPUS_STORAGE=postgres; " +
				"set it to a PostgreSQL URL or run with CAMPUS_STORAGE=memory")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("CAMPUS_STORAGE must be 'postgres' or 'memory', got %q", c.Storage)
	}

	if c.Timeouts.Request <= 0 || c.Timeouts.Bootstrap <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.Timeouts.Bootstrap < c.Timeouts.Request {
		return fmt.Errorf("CAMPUS_TIMEOUT_BOOTSTRAP (%s) must not be shorter than CAMPUS_TIMEOUT_REQUEST (%s)",
			c.Timeouts.Bootstrap, c.Timeouts.Request)
	}

	return nil
}

// HasCache returns true if a Redis cache is configured.
func (c *Config) HasCache() bool {
	return c.Cache.URL != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

// envDuration accepts Go durations ("10s") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
