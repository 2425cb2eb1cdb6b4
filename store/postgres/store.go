package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/getpup/schemadeploy/store"
	_ "github.com/lib/pq"
)

// DriverName is the database/sql driver used for PostgreSQL.
const DriverName = "postgres"

// Store is a PostgreSQL implementation of TrackingStore.
type Store struct {
	db     *sql.DB
	schema string
}

// Compile-time check that Store implements TrackingStore.
var _ store.TrackingStore = (*Store)(nil)

// New creates a Store for the given tracking schema.
// Returns an error if schema is not a safe SQL identifier.
//
// PostgreSQL folds unquoted identifiers to lower case, so the schema is
// lower-cased to match the catalog lookup in LockTableExists.
func New(db *sql.DB, schema string) (*Store, error) {
	if err := store.ValidateIdentifier(schema, "TrackingSchema"); err != nil {
		return nil, err
	}
	return &Store{db: db, schema: strings.ToLower(schema)}, nil
}

// DSN builds a lib/pq connection URL.
func DSN(conn store.Conn) string {
	sslMode := conn.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(conn.User, conn.Password),
		Host:     net.JoinHostPort(conn.Host, conn.Port),
		Path:     "/" + conn.Name,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

// Open opens and pings a PostgreSQL database.
func Open(ctx context.Context, conn store.Conn) (*sql.DB, error) {
	db, err := sql.Open(DriverName, DSN(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Ping(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the tracking schema if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.db == nil {
		return store.ErrNotOpen
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", s.schema)); err != nil {
		return fmt.Errorf("failed to create tracking schema: %w", err)
	}
	return nil
}

// LockTableExists reports whether the lock table exists in the tracking schema.
func (s *Store) LockTableExists(ctx context.Context) (bool, error) {
	if s.db == nil {
		return false, store.ErrNotOpen
	}
	query := `
		SELECT EXISTS(
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = $1 AND table_name = $2
		)
	`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, s.schema, store.LockTable).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check lock table: %w", err)
	}
	return exists, nil
}

// ReleaseLock clears the lock row.
func (s *Store) ReleaseLock(ctx context.Context) error {
	if s.db == nil {
		return store.ErrNotOpen
	}
	query := fmt.Sprintf(`
		UPDATE %s.%s
		SET LOCKED = FALSE, LOCKGRANTED = NULL, LOCKEDBY = NULL
		WHERE ID = 1
	`, s.schema, store.LockTable)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
