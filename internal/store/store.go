// Package store provides the persistence layer for the access engine: a
// PostgreSQL-backed store handing out transactional sessions over a generic
// record contract. Writes are staged inside the session's transaction and
// become durable on Commit.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	// ErrNotConfigured indicates the store was opened without a DSN.
	ErrNotConfigured = errors.New("store: database not configured")
	// ErrConnectionFailed indicates the database could not be reached.
	ErrConnectionFailed = errors.New("store: database connection failed")
	// ErrUnknownKind indicates a record kind without a registered table.
	ErrUnknownKind = errors.New("store: unknown record kind")
	// ErrSessionClosed indicates an operation on a released session.
	ErrSessionClosed = errors.New("store: session closed")
)

// Store owns the connection pool and hands out sessions.
type Store struct {
	db *sql.DB
}

// Option tunes the connection pool.
type Option func(*sql.DB)

// WithMaxOpenConns caps the number of open connections.
func WithMaxOpenConns(n int) Option {
	return func(db *sql.DB) {
		if n > 0 {
			db.SetMaxOpenConns(n)
		}
	}
}

// WithMaxIdleConns caps the number of idle connections.
func WithMaxIdleConns(n int) Option {
	return func(db *sql.DB) {
		if n > 0 {
			db.SetMaxIdleConns(n)
		}
	}
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, ErrNotConfigured
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	for _, opt := range opts {
		opt(db)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle. Used by tests and by callers that
// manage the pool themselves.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for schema management.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Session starts a new session. The transaction is opened lazily on first
// use; the caller must release the session with Close on every path.
func (s *Store) Session() *Session {
	return &Session{db: s.db}
}
