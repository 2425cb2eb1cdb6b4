//go:build integration

package integration_test

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"
)

// trackingSchema is created and dropped by every test.
const trackingSchema = "schemadeploy_it"

// getTestDB returns a database connection for integration tests.
// It reads the DATABASE_URL environment variable and skips the test if not set.
func getTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	return db
}

// setupLockTable creates the tracking schema and a lock table holding a stale
// lock, as left behind by a migration run that was killed.
func setupLockTable(t *testing.T, db *sql.DB) {
	t.Helper()

	stmts := []string{
		"CREATE SCHEMA IF NOT EXISTS " + trackingSchema,
		`CREATE TABLE IF NOT EXISTS ` + trackingSchema + `.databasechangeloglock (
			id INT PRIMARY KEY,
			locked BOOLEAN NOT NULL,
			lockgranted TIMESTAMP,
			lockedby VARCHAR(255)
		)`,
		`INSERT INTO ` + trackingSchema + `.databasechangeloglock (id, locked, lockgranted, lockedby)
			VALUES (1, TRUE, NOW(), 'crashed-host (10.0.0.7)')
			ON CONFLICT (id) DO UPDATE SET locked = TRUE, lockgranted = NOW(), lockedby = EXCLUDED.lockedby`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to create lock table: %v", err)
		}
	}
}

// teardownSchema drops the tracking schema.
// Errors are logged but don't fail the test.
func teardownSchema(t *testing.T, db *sql.DB) {
	t.Helper()

	if _, err := db.Exec("DROP SCHEMA IF EXISTS " + trackingSchema + " CASCADE"); err != nil {
		t.Logf("warning: failed to drop schema: %v", err)
	}
}

// lockState returns the lock row.
func lockState(t *testing.T, db *sql.DB) (locked bool, lockedBy sql.NullString) {
	t.Helper()

	err := db.QueryRow("SELECT locked, lockedby FROM " + trackingSchema + ".databasechangeloglock WHERE id = 1").
		Scan(&locked, &lockedBy)
	if err != nil {
		t.Fatalf("failed to read lock row: %v", err)
	}
	return locked, lockedBy
}
