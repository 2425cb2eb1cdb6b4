package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"

	"github.com/getpup/schemadeploy/store"
	driver "github.com/go-sql-driver/mysql"
)

// DriverName is the database/sql driver used for MySQL and MariaDB.
const DriverName = "mysql"

// lockTable is the name the migration tool creates on MySQL.
const lockTable = "DATABASECHANGELOGLOCK"

// Store is a MySQL implementation of TrackingStore.
// MySQL has no schemas, so the tracking schema is a separate database.
type Store struct {
	db     *sql.DB
	schema string
}

// Compile-time check that Store implements TrackingStore.
var _ store.TrackingStore = (*Store)(nil)

// New creates a Store for the given tracking database.
func New(db *sql.DB, schema string) (*Store, error) {
	if err := store.ValidateIdentifier(schema, "TrackingSchema"); err != nil {
		return nil, err
	}
	return &Store{db: db, schema: schema}, nil
}

// DSN builds a go-sql-driver/mysql data source name.
func DSN(conn store.Conn) string {
	cfg := driver.NewConfig()
	cfg.User = conn.User
	cfg.Passwd = conn.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(conn.Host, conn.Port)
	cfg.DBName = conn.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// Open opens and pings a MySQL database.
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

// EnsureSchema creates the tracking database if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.db == nil {
		return store.ErrNotOpen
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", s.schema)); err != nil {
		return fmt.Errorf("failed to create tracking database: %w", err)
	}
	return nil
}

// LockTableExists reports whether the lock table exists in the tracking database.
func (s *Store) LockTableExists(ctx context.Context) (bool, error) {
	if s.db == nil {
		return false, store.ErrNotOpen
	}
	query := `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = ? AND LOWER(table_name) = ?
	`
	var n int
	if err := s.db.QueryRowContext(ctx, query, s.schema, store.LockTable).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check lock table: %w", err)
	}
	return n > 0, nil
}

// ReleaseLock clears the lock row.
func (s *Store) ReleaseLock(ctx context.Context) error {
	if s.db == nil {
		return store.ErrNotOpen
	}
	query := fmt.Sprintf(
		"UPDATE `%s`.`%s` SET LOCKED = FALSE, LOCKGRANTED = NULL, LOCKEDBY = NULL WHERE ID = 1",
		s.schema, lockTable,
	)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
