// Package db provides PostgreSQL storage for SmartBot sessions, their
// transcripts and analyses, and read access to the job board records.
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Rauan228/HackNU2/internal/smartbot"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrVersionConflict is returned when a session row changed since it was read.
	ErrVersionConflict = smartbot.ErrVersionConflict
	// ErrSessionExists is returned when an application already has a session.
	ErrSessionExists = smartbot.ErrSessionExists
	// ErrEmailTaken is returned when registering an email that is already in use.
	ErrEmailTaken = errors.New("db: email already registered")
)

var _ smartbot.Store = (*DB)(nil)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// jsonList encodes a slice for a JSONB column, writing [] for nil.
func jsonList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

// decodeList decodes a JSONB array column, returning an empty slice for NULL.
func decodeList[T any](data []byte) ([]T, error) {
	out := []T{}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
