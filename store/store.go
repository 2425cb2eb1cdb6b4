package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	schemadeploy "github.com/getpup/schemadeploy"
)

// LockTable is the migration tool's lock table name. Dialects that compare
// identifiers case-sensitively use the upper-case form.
const LockTable = "databasechangeloglock"

// TrackingStore provides direct access to the migration tool's tracking schema.
// It is used only to prepare the schema and clear a stale lock before a run.
type TrackingStore interface {
	// EnsureSchema creates the tracking schema if it does not exist.
	EnsureSchema(ctx context.Context) error

	// LockTableExists reports whether the lock table exists in the tracking schema.
	LockTableExists(ctx context.Context) (bool, error)

	// ReleaseLock clears the lock row unconditionally.
	ReleaseLock(ctx context.Context) error
}

// Conn holds the connection settings for opening a tracking store.
type Conn struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

// ResetLock ensures the tracking schema exists and clears any lock left by a
// previous failed run. The lock is cleared even when it is not held. Every
// error wraps schemadeploy.ErrLockReset.
func ResetLock(ctx context.Context, s TrackingStore) error {
	if err := s.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("%w: %w", schemadeploy.ErrLockReset, err)
	}

	exists, err := s.LockTableExists(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", schemadeploy.ErrLockReset, err)
	}
	if !exists {
		return nil
	}

	if err := s.ReleaseLock(ctx); err != nil {
		return fmt.Errorf("%w: %w", schemadeploy.ErrLockReset, err)
	}
	return nil
}

// PingRetries bounds the connection attempts made by Ping.
const PingRetries = 4

// Ping verifies db is reachable, retrying with exponential backoff.
func Ping(ctx context.Context, db *sql.DB) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	err := backoff.Retry(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(backoff.WithMaxRetries(b, PingRetries), ctx))
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}
