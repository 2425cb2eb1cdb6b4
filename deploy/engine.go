package deploy

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"syscall"
	"time"

	schemadeploy "github.com/getpup/schemadeploy"
	"github.com/getpup/schemadeploy/diagnose"
	"github.com/getpup/schemadeploy/executor"
	"github.com/getpup/schemadeploy/internal/redact"
	"github.com/getpup/schemadeploy/lifecycle"
	"github.com/getpup/schemadeploy/metrics"
	"github.com/getpup/schemadeploy/notify"
	"github.com/getpup/schemadeploy/store"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// Config holds configuration for the deploy Engine.
type Config struct {
	// Directories are the schema directories to deploy, in order (required).
	Directories []string

	// Extension selects eligible changelog files (default: ".sql").
	Extension string

	// Version is tagged after every deployed file and reported (required).
	Version string

	// Host identifies the target database in reports.
	Host string

	// Runner invokes the migration tool (required).
	Runner executor.Runner

	// Tracking clears the stale lock before the first directory (required).
	Tracking store.TrackingStore

	// Notifier receives the single end-of-run report (default: log notifier).
	Notifier notify.Notifier

	// Redactor masks credentials in logs and reports.
	Redactor *redact.Redactor

	// Logger is for observability (optional).
	Logger hclog.Logger

	// Collector records run metrics (optional).
	Collector *metrics.Collector

	// RunID correlates logs and the report (default: random UUID).
	RunID string

	// NotifyTimeout bounds report dispatch, including after cancellation (default: 1m).
	NotifyTimeout time.Duration
}

// Engine deploys changelog files directory by directory and file by file,
// stopping at the first failure.
type Engine struct {
	config  Config
	tracker *lifecycle.Tracker
}

// Compile-time check that Engine implements Deployer.
var _ schemadeploy.Deployer = (*Engine)(nil)

// New creates a new Engine with the given configuration.
// Returns an error if a required field is missing.
func New(cfg Config) (*Engine, error) {
	if len(cfg.Directories) == 0 {
		return nil, errors.New("at least one schema directory is required")
	}
	if cfg.Version == "" {
		return nil, errors.New("version is required")
	}
	if cfg.Runner == nil {
		return nil, errors.New("runner is required")
	}
	if cfg.Tracking == nil {
		return nil, errors.New("tracking store is required")
	}

	if cfg.Extension == "" {
		cfg.Extension = ".sql"
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.NewLog(cfg.Logger, cfg.Redactor)
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.NotifyTimeout == 0 {
		cfg.NotifyTimeout = time.Minute
	}
	cfg.Logger = cfg.Logger.With("run_id", cfg.RunID)

	return &Engine{
		config:  cfg,
		tracker: lifecycle.New(cfg.Logger),
	}, nil
}

// Phases returns every phase the engine has entered.
func (e *Engine) Phases() []schemadeploy.Phase {
	return e.tracker.History()
}

// failure is an aborting error tied to the file being processed, if any.
type failure struct {
	phase schemadeploy.Phase
	file  string
	err   error
}

// Run deploys every eligible changelog file and dispatches exactly one report.
func (e *Engine) Run(ctx context.Context) (schemadeploy.Status, error) {
	start := time.Now()
	defer func() {
		e.config.Collector.ObserveRunDuration(time.Since(start).Seconds())
	}()

	log := e.config.Logger
	log.Info("starting schema deployment",
		"version", e.config.Version,
		"directories", e.config.Directories,
	)

	if f := e.deployAll(ctx); f != nil {
		return e.fail(ctx, *f)
	}
	return e.succeed(ctx)
}

func (e *Engine) deployAll(ctx context.Context) *failure {
	log := e.config.Logger
	lockReset := false

	for _, dir := range e.config.Directories {
		if err := ctx.Err(); err != nil {
			return &failure{phase: e.tracker.Phase(), err: fmt.Errorf("deploy cancelled: %w", err)}
		}

		entries, err := os.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			log.Warn("no such schema directory, skipping", "directory", dir, "error", err)
			e.config.Collector.IncDirectoriesMissing()
			continue
		}
		if err != nil {
			return &failure{phase: schemadeploy.PhaseProcessingDirectory, err: fmt.Errorf("failed to list schema directory %s: %w", dir, err)}
		}

		if !lockReset {
			e.tracker.Transition(schemadeploy.PhaseLockReset)
			log.Info("releasing stale tracking lock")
			if err := store.ResetLock(ctx, e.config.Tracking); err != nil {
				return &failure{phase: schemadeploy.PhaseLockReset, err: err}
			}
			e.config.Collector.IncLockResets()
			lockReset = true
		}

		e.tracker.Transition(schemadeploy.PhaseProcessingDirectory, "directory", dir)
		log.Info("deploying schema", "directory", dir)

		for _, file := range e.changelogFiles(dir, entries) {
			if f := e.deployFile(ctx, dir, file); f != nil {
				return f
			}
		}
	}

	return nil
}

// changelogFiles returns the eligible files of dir in lexicographic order.
func (e *Engine) changelogFiles(dir string, entries []fs.DirEntry) []string {
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), e.config.Extension) {
			e.config.Logger.Info("not a changelog file, skipping", "directory", dir, "name", entry.Name())
			e.config.Collector.IncFilesSkipped(dir)
			continue
		}
		names = append(names, entry.Name())
	}
	slices.Sort(names)

	files := make([]string, len(names))
	for i, name := range names {
		files[i] = changelogPath(dir, name)
	}
	return files
}

// changelogPath joins without cleaning: the migration tool records this exact
// path in each changeset identifier.
func changelogPath(dir, name string) string {
	return strings.TrimSuffix(dir, "/") + "/" + name
}

func (e *Engine) deployFile(ctx context.Context, dir, file string) *failure {
	log := e.config.Logger

	if err := ctx.Err(); err != nil {
		return &failure{phase: schemadeploy.PhaseDeploying, file: file, err: fmt.Errorf("deploy cancelled: %w", err)}
	}

	e.tracker.Transition(schemadeploy.PhaseDeploying, "file", file)
	log.Info("deploying changelog file", "file", file)

	result, err := e.config.Runner.Update(ctx, file)
	if err != nil {
		return &failure{phase: schemadeploy.PhaseDeploying, file: file, err: fmt.Errorf("failed to deploy %s: %w", file, err)}
	}
	log.Info("deployed changelog file", "file", file, "duration", result.Duration)
	log.Debug("migration tool output", "output", e.config.Redactor.Redact(result.Output))
	e.config.Collector.IncFilesDeployed(dir)
	e.config.Collector.ObserveFileDeployDuration(result.Duration.Seconds())

	e.tracker.Transition(schemadeploy.PhaseTagging, "file", file)
	result, err = e.config.Runner.Tag(ctx, e.config.Version)
	if err != nil {
		return &failure{phase: schemadeploy.PhaseTagging, file: file, err: fmt.Errorf("failed to tag %s after %s: %w", e.config.Version, file, err)}
	}
	log.Info("database tagged", "tag", e.config.Version, "file", file)
	log.Debug("migration tool output", "output", e.config.Redactor.Redact(result.Output))
	e.config.Collector.IncTagsApplied()

	return nil
}

func (e *Engine) succeed(ctx context.Context) (schemadeploy.Status, error) {
	e.tracker.Transition(schemadeploy.PhaseReporting)
	e.config.Logger.Info("schema deployment succeeded", "version", e.config.Version)

	e.config.Collector.SetLastRunSuccess(true)
	e.dispatch(ctx, schemadeploy.NewSuccessEnvelope(
		e.config.RunID,
		e.config.Host,
		e.config.Directories,
		e.config.Version,
	))
	return schemadeploy.StatusSuccess, nil
}

func (e *Engine) fail(ctx context.Context, f failure) (schemadeploy.Status, error) {
	e.tracker.Transition(schemadeploy.PhaseReporting)
	log := e.config.Logger
	r := e.config.Redactor

	report := Diagnose(f.err, r)

	log.Error("execution halted, fix the error and release a new tag",
		"phase", f.phase,
		"file", f.file,
		"failed_changeset", diagnose.Or(report.FailedChangeset, schemadeploy.NoneValue),
		"error", report.Traceback,
	)
	var execErr *executor.ExecutionError
	if errors.As(f.err, &execErr) {
		log.Error("migration tool output", "output", r.Redact(execErr.Output))
	}

	e.config.Collector.IncFailures(string(f.phase))
	e.config.Collector.SetLastRunSuccess(false)
	e.dispatch(ctx, schemadeploy.NewFailureEnvelope(
		e.config.RunID,
		e.config.Host,
		e.config.Directories,
		e.config.Version,
		f.file,
		report,
	))
	return schemadeploy.StatusFailed, &redactedError{msg: report.Traceback, err: f.err}
}

// redactedError carries the redacted message of a failure while keeping the
// original chain for errors.Is and errors.As.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }

// Diagnose builds the failure report for err. Tool output, when err carries
// it, is scanned for the root cause and changeset; otherwise the error itself
// is the cause. Every text field is redacted.
func Diagnose(err error, r *redact.Redactor) schemadeploy.FailureReport {
	report := schemadeploy.FailureReport{Traceback: r.Redact(err.Error())}

	var execErr *executor.ExecutionError
	if errors.As(err, &execErr) {
		d := diagnose.Diagnose(execErr.Output)
		report.FailedChangeset = d.FailedChangeset
		if d.CausedBy != nil {
			causedBy := r.Redact(*d.CausedBy)
			report.CausedBy = &causedBy
		}
		return report
	}

	causedBy := report.Traceback
	report.CausedBy = &causedBy
	return report
}

// dispatch sends the report. Failures are logged and never escalate. The
// report is sent even when ctx has been cancelled.
func (e *Engine) dispatch(ctx context.Context, envelope schemadeploy.NotificationEnvelope) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.config.NotifyTimeout)
	defer cancel()

	if err := e.config.Notifier.Notify(ctx, envelope); err != nil {
		e.config.Logger.Error("failed to send notification", "status", envelope.Status, "error", e.config.Redactor.Redact(err.Error()))
		return
	}
	e.config.Logger.Info("notification dispatched", "status", envelope.Status)
}
