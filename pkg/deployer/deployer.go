// Package deployer assembles a ready-to-run schema deployment from the
// environment configuration. It is the entry point for programs that embed
// the deploy engine.
package deployer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	schemadeploy "github.com/getpup/schemadeploy"
	"github.com/getpup/schemadeploy/config"
	"github.com/getpup/schemadeploy/deploy"
	"github.com/getpup/schemadeploy/executor"
	"github.com/getpup/schemadeploy/internal/redact"
	"github.com/getpup/schemadeploy/metrics"
	"github.com/getpup/schemadeploy/notify"
	"github.com/getpup/schemadeploy/store"
	"github.com/getpup/schemadeploy/store/mysql"
	"github.com/getpup/schemadeploy/store/postgres"
	"github.com/getpup/schemadeploy/store/sqlite"
	"github.com/hashicorp/go-hclog"
)

// Option configures a Deployment.
type Option func(*options)

type options struct {
	runner         executor.Runner
	tracking       store.TrackingStore
	notifier       notify.Notifier
	logger         hclog.Logger
	metricsEnabled bool
	runID          string
	directories    []string
	version        string
}

// Deployment is a configured deploy run together with the resources it owns.
type Deployment struct {
	schemadeploy.Deployer

	lazy *store.Lazy
}

// Compile-time check that Deployment implements Deployer.
var _ schemadeploy.Deployer = (*Deployment)(nil)

// New builds a Deployment from cfg.
//
// Optional configuration (with defaults):
//   - WithRunner: migration tool runner (default: Liquibase executor from cfg.Liquibase)
//   - WithTrackingStore: lock reset store (default: connected from cfg.Database on first use)
//   - WithNotifier: report transport (default: SMTP when recipients are set, otherwise the log)
//   - WithLogger: logger for observability (default: null logger)
//   - WithMetricsEnabled: record Prometheus metrics (default: true)
//   - WithRunID: run identifier (default: random UUID)
//   - WithDirectories: schema directories (default: cfg.Schemas)
//   - WithVersion: release version (default: cfg.Version())
//
// Example:
//
//	cfg, err := config.Load()
//	d, err := deployer.New(ctx, cfg, deployer.WithLogger(logger))
//	defer d.Close()
//	status, err := d.Run(ctx)
//
// When no tracking store is given, the database is connected only once a
// schema directory is about to be deployed, so New never dials it.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Deployment, error) {
	o := &options{metricsEnabled: true}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = hclog.NewNullLogger()
	}
	if o.directories == nil {
		o.directories = cfg.Schemas
	}
	if o.version == "" {
		o.version = cfg.Version()
	}

	redactor := redact.New(cfg.Secrets()...)
	d := &Deployment{}

	if o.tracking == nil {
		dbCfg := cfg.Database
		d.lazy = store.NewLazy(func(ctx context.Context) (store.TrackingStore, io.Closer, error) {
			db, tracking, err := OpenTrackingStore(ctx, dbCfg)
			if err != nil {
				return nil, nil, err
			}
			return tracking, db, nil
		})
		o.tracking = d.lazy
	}
	if o.runner == nil {
		o.runner = NewRunner(cfg, o.logger, redactor)
	}
	if o.notifier == nil {
		o.notifier = NewNotifier(cfg, o.logger, redactor)
	}

	var collector *metrics.Collector
	if o.metricsEnabled {
		collector = metrics.NewCollector(cfg.Database.Name)
	}

	engine, err := deploy.New(deploy.Config{
		Directories: o.directories,
		Extension:   cfg.Extension,
		Version:     o.version,
		Host:        cfg.Target(),
		Runner:      o.runner,
		Tracking:    o.tracking,
		Notifier:    o.notifier,
		Redactor:    redactor,
		Logger:      o.logger,
		Collector:   collector,
		RunID:       o.runID,
	})
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Deployer = engine

	return d, nil
}

// Close releases the tracking database if the Deployment connected to it.
func (d *Deployment) Close() error {
	if d.lazy == nil {
		return nil
	}
	return d.lazy.Close()
}

// OpenTrackingStore connects to the database named by cfg and returns the
// dialect's tracking store. The caller owns the returned *sql.DB.
func OpenTrackingStore(ctx context.Context, cfg config.Database) (*sql.DB, store.TrackingStore, error) {
	conn := cfg.Conn()

	switch cfg.Type {
	case schemadeploy.DialectPostgres:
		db, err := postgres.Open(ctx, conn)
		if err != nil {
			return nil, nil, err
		}
		s, err := postgres.New(db, cfg.TrackingSchema)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, s, nil

	case schemadeploy.DialectMySQL:
		db, err := mysql.Open(ctx, conn)
		if err != nil {
			return nil, nil, err
		}
		s, err := mysql.New(db, cfg.TrackingSchema)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, s, nil

	case schemadeploy.DialectSQLite:
		db, err := sqlite.Open(ctx, conn)
		if err != nil {
			return nil, nil, err
		}
		return db, sqlite.New(db), nil
	}

	return nil, nil, fmt.Errorf("%w: %q", schemadeploy.ErrUnsupportedDialect, cfg.Type)
}

// NewRunner builds the Liquibase executor for cfg.
func NewRunner(cfg config.Config, logger hclog.Logger, r *redact.Redactor) *executor.Executor {
	return executor.New(executor.Config{
		JavaBin:        cfg.Liquibase.JavaBin,
		LiquibaseJar:   cfg.Liquibase.Jar,
		ConnectorJar:   cfg.Liquibase.ConnectorJar,
		Dialect:        cfg.Database.Type,
		Host:           cfg.Database.Host,
		Port:           cfg.Database.Port,
		Database:       cfg.Database.Name,
		Username:       cfg.Database.User,
		Password:       cfg.Database.Password,
		TrackingSchema: cfg.Database.TrackingSchema,
		LogLevel:       cfg.LogLevel,
		Timeout:        cfg.Liquibase.Timeout,
		Logger:         logger,
		Redactor:       r,
	})
}

// NewNotifier returns an SMTP notifier when recipients are configured and a
// log notifier otherwise.
func NewNotifier(cfg config.Config, logger hclog.Logger, r *redact.Redactor) notify.Notifier {
	if len(cfg.Email.Recipients) == 0 {
		return notify.NewLog(logger, r)
	}
	return notify.NewSMTP(notify.SMTPConfig{
		Host:       cfg.Email.Host,
		Port:       cfg.Email.Port,
		User:       cfg.Email.User,
		Password:   cfg.Email.Password,
		Recipients: cfg.Email.Recipients,
		Redactor:   r,
		Logger:     logger,
	})
}

// WithRunner sets a custom migration tool runner.
func WithRunner(runner executor.Runner) Option {
	return func(o *options) {
		o.runner = runner
	}
}

// WithTrackingStore sets a custom tracking store. No database is opened.
func WithTrackingStore(tracking store.TrackingStore) Option {
	return func(o *options) {
		o.tracking = tracking
	}
}

// WithNotifier sets a custom report transport.
func WithNotifier(notifier notify.Notifier) Option {
	return func(o *options) {
		o.notifier = notifier
	}
}

// WithLogger sets the logger for observability.
func WithLogger(logger hclog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetricsEnabled enables or disables Prometheus metrics collection.
func WithMetricsEnabled(enabled bool) Option {
	return func(o *options) {
		o.metricsEnabled = enabled
	}
}

// WithRunID sets the identifier that correlates logs and the report.
func WithRunID(runID string) Option {
	return func(o *options) {
		o.runID = runID
	}
}

// WithDirectories overrides the configured schema directories.
func WithDirectories(directories ...string) Option {
	return func(o *options) {
		o.directories = directories
	}
}

// WithVersion overrides the resolved release version.
func WithVersion(version string) Option {
	return func(o *options) {
		o.version = version
	}
}

// ErrNoDeployer is returned by Run on a zero Deployment.
var ErrNoDeployer = errors.New("deployment was not built with New")

// Run deploys every configured schema directory.
func (d *Deployment) Run(ctx context.Context) (schemadeploy.Status, error) {
	if d.Deployer == nil {
		return schemadeploy.StatusFailed, ErrNoDeployer
	}
	return d.Deployer.Run(ctx)
}
