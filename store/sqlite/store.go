package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/getpup/schemadeploy/store"
	_ "github.com/mattn/go-sqlite3"
)

// DriverName is the database/sql driver used for SQLite.
const DriverName = "sqlite3"

// lockTable is the name the migration tool creates on SQLite.
const lockTable = "DATABASECHANGELOGLOCK"

// Store is a SQLite implementation of TrackingStore.
// SQLite has no schemas; the tracking tables live in the main database.
type Store struct {
	db *sql.DB
}

// Compile-time check that Store implements TrackingStore.
var _ store.TrackingStore = (*Store)(nil)

// New creates a Store on db.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens and pings the SQLite database file named by conn.Name.
func Open(ctx context.Context, conn store.Conn) (*sql.DB, error) {
	db, err := sql.Open(DriverName, conn.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Ping(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema is a no-op: SQLite has no schemas to create.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.db == nil {
		return store.ErrNotOpen
	}
	return nil
}

// LockTableExists reports whether the lock table exists.
func (s *Store) LockTableExists(ctx context.Context) (bool, error) {
	if s.db == nil {
		return false, store.ErrNotOpen
	}
	query := `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE`

	var n int
	if err := s.db.QueryRowContext(ctx, query, lockTable).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check lock table: %w", err)
	}
	return n > 0, nil
}

// ReleaseLock clears the lock row.
func (s *Store) ReleaseLock(ctx context.Context) error {
	if s.db == nil {
		return store.ErrNotOpen
	}
	query := fmt.Sprintf("UPDATE %s SET LOCKED = 0, LOCKGRANTED = NULL, LOCKEDBY = NULL WHERE ID = 1", lockTable)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
