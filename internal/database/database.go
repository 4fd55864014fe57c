package database

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"bazaar/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

//go:embed schema.sql
var schema string

// PoolOptions holds connection pool sizing.
type PoolOptions struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultPoolOptions returns sensible default pool sizing.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 1 * time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// NewPool creates a new PostgreSQL connection pool from application configuration.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Int("max_connections", cfg.MaxConnections).
		Int("min_connections", cfg.MinConnections).
		Msg("creating database connection pool")

	return Open(ctx, cfg.ConnectionString(), PoolOptions{
		MaxConns:        int32(cfg.MaxConnections),
		MinConns:        int32(cfg.MinConnections),
		MaxConnLifetime: time.Duration(cfg.MaxConnLifetime) * time.Second,
		MaxConnIdleTime: 30 * time.Minute,
	}, logger)
}

// Open creates a connection pool for connString and verifies connectivity.
func Open(ctx context.Context, connString string, opts PoolOptions, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Configure pool settings
	poolConfig.MaxConns = opts.MaxConns
	poolConfig.MinConns = opts.MinConns
	poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().Msg("database connection pool created successfully")

	return pool, nil
}

// Migrate creates the tables and indexes when they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		logger.Error().Err(err).Msg("failed to apply schema")
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	logger.Info().Msg("database schema applied")
	return nil
}
