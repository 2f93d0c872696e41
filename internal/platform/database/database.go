// Package database provides PostgreSQL connection management via pgx.
package database

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/campus/internal/platform/config"
)

// Schema is the table layout the Postgres stores expect. It is idempotent
// (CREATE ... IF NOT EXISTS) and is not a migration system.
//
//go:embed schema.sql
var Schema string

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

const connectTimeout = 5 * time.Second

// PoolConfig turns the database section of the campus config into a pool
// configuration. MinConns is capped at MaxConns.
func PoolConfig(dc config.DatabaseConfig) (*pgxpool.Config, error) {
	if dc.URL == "" {
		return nil, fmt.Errorf("database URL is empty")
	}
	cfg, err := pgxpool.ParseConfig(dc.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	if dc.MaxConns > 0 {
		cfg.MaxConns = int32(dc.MaxConns)
	}
	cfg.MinConns = min(int32(max(dc.MinConns, 0)), cfg.MaxConns)
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	return cfg, nil
}

// New opens the pool and checks that the server answers within
// connectTimeout.
func New(ctx context.Context, dc config.DatabaseConfig) (*DB, error) {
	cfg, err := PoolConfig(dc)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	slog.Info("database connected", "max_conns", cfg.MaxConns, "min_conns", cfg.MinConns)
	return &DB{Pool: pool}, nil
}

// EnsureSchema creates the campus tables when they are missing.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// HealthCheck pings the pool. It backs the database readiness probe.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// NullIfEmpty maps "" to SQL NULL.
func NullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
