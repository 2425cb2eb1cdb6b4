// Package config builds the immutable deploy configuration from the
// environment. A .env file, when present, is loaded first; variables that are
// already set in the environment take precedence over it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	schemadeploy "github.com/getpup/schemadeploy"
	"github.com/getpup/schemadeploy/store"
	"github.com/getpup/schemadeploy/versioning"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Database holds the connection settings shared by the lock reset and the migration tool.
type Database struct {
	Type     schemadeploy.Dialect `envconfig:"DB_TYPE" default:"postgres"`
	Host     string               `envconfig:"POSTGRES_HOST"`
	Port     string               `envconfig:"PORT" default:"5432"`
	Name     string               `envconfig:"POSTGRES_DB"`
	User     string               `envconfig:"POSTGRES_USER"`
	Password string               `envconfig:"POSTGRES_PASSWORD"`
	SSLMode  string               `envconfig:"DB_SSLMODE" default:"disable"`

	// TrackingSchema holds the migration tool's changelog and lock tables.
	TrackingSchema string `envconfig:"TRACKING_SCHEMA" default:"db_logs"`
}

// Liquibase locates the external migration tool.
type Liquibase struct {
	JavaBin      string        `envconfig:"JAVA_BIN" default:"java"`
	Jar          string        `envconfig:"LIQUIBASE_JAR" default:"lib/liquibase-core.jar"`
	ConnectorJar string        `envconfig:"LIQUIBASE_CONNECTOR_JAR" default:"lib/postgresql.jar"`
	Timeout      time.Duration `envconfig:"DEPLOY_TIMEOUT" default:"30m"`
}

// Email configures the SMTP notifier. An empty recipient list disables email.
type Email struct {
	Host       string   `envconfig:"EMAIL_HOST" default:"smtp.gmail.com"`
	Port       int      `envconfig:"EMAIL_PORT" default:"587"`
	User       string   `envconfig:"EMAIL_USER"`
	Password   string   `envconfig:"EMAIL_PASSWORD"`
	Recipients []string `envconfig:"EMAIL_RECIPIENTS"`
}

// Config is the complete deploy configuration. Build it once with Load and
// pass it by value; nothing mutates it after construction.
type Config struct {
	Database  Database
	Liquibase Liquibase
	Email     Email

	// Schemas are the schema directories to deploy, in order.
	Schemas []string `envconfig:"AVAILABLE_SCHEMAS"`

	// Extension selects eligible changelog files.
	Extension string `envconfig:"CHANGELOG_EXTENSION" default:".sql"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Tag, VersionOverride and VersionFile feed versioning.Resolve.
	Tag             string `envconfig:"TAG"`
	VersionOverride string `envconfig:"SCHEMA_VERSION"`
	VersionFile     string `envconfig:"VERSION_FILE" default:"VERSION"`

	// PushgatewayURL enables pushing run metrics when set.
	PushgatewayURL string `envconfig:"PUSHGATEWAY_URL"`

	// version is resolved once by Process so a run reports one version even
	// if the version file changes underneath it.
	version string
}

// Load reads the optional .env files and processes the environment.
// With no files given, ".env" in the working directory is tried.
func Load(envFiles ...string) (Config, error) {
	if err := LoadEnvFiles(envFiles...); err != nil {
		return Config{}, err
	}
	return FromEnv()
}

// LoadEnvFiles loads the given .env files into the environment without
// overriding variables that are already set. Missing files are ignored.
func LoadEnvFiles(envFiles ...string) error {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// FromEnv processes and validates the current environment without reading .env files.
func FromEnv() (Config, error) {
	c, err := Process()
	if err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Process reads the current environment without validating it. Commands that
// do not touch the database use it to avoid requiring connection settings.
func Process() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("failed to process environment: %w", err)
	}
	c.normalize()
	c.version = c.resolveVersion()
	return c, nil
}

func (c *Config) normalize() {
	c.Schemas = trimList(c.Schemas)
	c.Email.Recipients = trimList(c.Email.Recipients)
	if c.Extension != "" && !strings.HasPrefix(c.Extension, ".") {
		c.Extension = "." + c.Extension
	}
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate reports every missing or inconsistent setting at once.
func (c Config) Validate() error {
	var result *multierror.Error

	if len(c.Schemas) == 0 {
		result = multierror.Append(result, errors.New("AVAILABLE_SCHEMAS must list at least one schema directory"))
	}
	if !c.Database.Type.Valid() {
		result = multierror.Append(result, fmt.Errorf("%w: %q", schemadeploy.ErrUnsupportedDialect, c.Database.Type))
	}
	if c.Database.Name == "" {
		result = multierror.Append(result, errors.New("POSTGRES_DB is required"))
	}
	if c.Database.Type != schemadeploy.DialectSQLite && c.Database.Host == "" {
		result = multierror.Append(result, errors.New("POSTGRES_HOST is required"))
	}
	if c.Database.TrackingSchema == "" {
		result = multierror.Append(result, errors.New("TRACKING_SCHEMA cannot be empty"))
	}
	if c.Liquibase.Timeout <= 0 {
		result = multierror.Append(result, errors.New("DEPLOY_TIMEOUT must be positive"))
	}
	if len(c.Email.Recipients) > 0 && c.Email.User == "" {
		result = multierror.Append(result, errors.New("EMAIL_USER is required when EMAIL_RECIPIENTS is set"))
	}

	return result.ErrorOrNil()
}

// Version returns the release version for this run. A Config from Process
// keeps the version resolved at load time; a literal Config resolves it on
// each call.
func (c Config) Version() string {
	if c.version != "" {
		return c.version
	}
	return c.resolveVersion()
}

// resolveVersion applies versioning.Resolve. The version file is the
// persisted default; a missing or unreadable file falls back to the build
// default.
func (c Config) resolveVersion() string {
	src := versioning.Sources{
		Tag:      c.Tag,
		Override: c.VersionOverride,
	}
	if c.VersionFile != "" {
		if v, err := versioning.ReadVersionFile(c.VersionFile); err == nil {
			src.Default = v
		}
	}
	return versioning.Resolve(src)
}

// Secrets returns every credential that must never leave the process in clear text.
func (c Config) Secrets() []string {
	return []string{c.Database.Password, c.Email.Password}
}

// Target identifies the database host for reports.
func (c Config) Target() string {
	if c.Database.Type == schemadeploy.DialectSQLite {
		return c.Database.Name
	}
	return c.Database.Host
}

// Conn returns the settings used to open the tracking store.
func (d Database) Conn() store.Conn {
	return store.Conn{
		Host:     d.Host,
		Port:     d.Port,
		Name:     d.Name,
		User:     d.User,
		Password: d.Password,
		SSLMode:  d.SSLMode,
	}
}
