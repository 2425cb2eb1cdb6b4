package changelog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	schemadeploy "github.com/getpup/schemadeploy"
)

// TimestampLayout prefixes every generated filename.
const TimestampLayout = "20060102150405"

var (
	nameRegex   = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	authorRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.@-]*$`)
)

// ErrExists is returned when the target changelog file already exists.
var ErrExists = errors.New("changelog file already exists")

// Config configures changelog generation.
type Config struct {
	// OutputFolder is the schema directory the file is written to.
	OutputFolder string

	// Name describes the change, e.g. "add_users_table".
	// Lowercase letters, numbers and underscores only.
	Name string

	// Author is recorded in the changeset header.
	Author string

	// Dialect restricts the changeset to one database type. Empty means any.
	Dialect schemadeploy.Dialect

	// Now is the creation time (default: time.Now).
	Now func() time.Time
}

// DefaultConfig returns the default configuration for a new changelog.
func DefaultConfig() Config {
	return Config{
		OutputFolder: "schemas",
		Author:       "schemadeploy",
		Dialect:      schemadeploy.DialectPostgres,
		Now:          time.Now,
	}
}

func validateConfig(config *Config) error {
	if config.Name == "" {
		return errors.New("Name cannot be empty")
	}
	if !nameRegex.MatchString(config.Name) {
		return fmt.Errorf("Name must start with a lowercase letter and contain only lowercase letters, numbers, and underscores (got: %s)", config.Name)
	}
	if !authorRegex.MatchString(config.Author) {
		return fmt.Errorf("Author must not be empty or contain spaces or colons (got: %q)", config.Author)
	}
	if config.Dialect != "" && !config.Dialect.Valid() {
		return fmt.Errorf("%w: %q", schemadeploy.ErrUnsupportedDialect, config.Dialect)
	}
	return nil
}

// Filename returns the name of the file Generate writes at t.
func Filename(name string, t time.Time) string {
	return fmt.Sprintf("%s_%s.sql", t.UTC().Format(TimestampLayout), name)
}

// Generate writes a new changelog file and returns its path.
// It never overwrites an existing file.
func Generate(config *Config) (string, error) {
	if err := validateConfig(config); err != nil {
		return "", fmt.Errorf("invalid configuration: %w", err)
	}
	now := time.Now
	if config.Now != nil {
		now = config.Now
	}
	t := now()

	if err := os.MkdirAll(config.OutputFolder, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output folder: %w", err)
	}

	outputPath := filepath.Join(config.OutputFolder, Filename(config.Name, t))
	f, err := os.OpenFile(outputPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return "", fmt.Errorf("%w: %s", ErrExists, outputPath)
	}
	if err != nil {
		return "", fmt.Errorf("failed to create changelog file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(generateSQL(config, t)); err != nil {
		return "", fmt.Errorf("failed to write changelog file: %w", err)
	}
	return outputPath, nil
}

// dbms maps a dialect to the Liquibase database shortname.
func dbms(d schemadeploy.Dialect) string {
	switch d {
	case schemadeploy.DialectPostgres:
		return "postgresql"
	case schemadeploy.DialectMySQL:
		return "mysql"
	case schemadeploy.DialectSQLite:
		return "sqlite"
	}
	return ""
}

func generateSQL(config *Config, t time.Time) string {
	header := fmt.Sprintf("--changeset %s:%s", config.Author, t.UTC().Format(TimestampLayout))
	if d := dbms(config.Dialect); d != "" {
		header += " dbms:" + d
	}

	return fmt.Sprintf(`--liquibase formatted sql

-- %s
-- Generated: %s

%s
--comment: %s

--rollback
`,
		config.Name,
		t.UTC().Format(time.RFC3339),
		header,
		config.Name,
	)
}
