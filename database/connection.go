package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB represents a database connection pool
type DB struct {
	*pgxpool.Pool
	isolation pgx.TxIsoLevel
}

// Option configures a DB at construction time
type Option func(*DB)

// WithIsolation sets the isolation level used by Begin
func WithIsolation(level pgx.TxIsoLevel) Option {
	return func(db *DB) {
		db.isolation = level
	}
}

// ParseIsolation maps a config value to a pgx isolation level
func ParseIsolation(value string) (pgx.TxIsoLevel, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "read_committed", "read committed":
		return pgx.ReadCommitted, nil
	case "repeatable_read", "repeatable read":
		return pgx.RepeatableRead, nil
	case "serializable":
		return pgx.Serializable, nil
	default:
		return "", fmt.Errorf("unsupported isolation level %q", value)
	}
}

// NewConnection creates a new database connection pool
func NewConnection(ctx context.Context, databaseURL string, opts ...Option) (*DB, error) {
	// Parse config to set timezone
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// All timestamps are compared in UTC
	config.ConnConfig.RuntimeParams["timezone"] = "UTC"

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{Pool: pool, isolation: pgx.ReadCommitted}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// Begin starts a transaction at the configured isolation level
func (db *DB) Begin(ctx context.Context) (pgx.Tx, error) {
	return db.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: db.isolation})
}

// Isolation returns the isolation level used by Begin
func (db *DB) Isolation() pgx.TxIsoLevel {
	return db.isolation
}

// Close closes the database connection pool
func (db *DB) Close() {
	db.Pool.Close()
}
