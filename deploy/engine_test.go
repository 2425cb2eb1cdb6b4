package deploy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	schemadeploy "github.com/getpup/schemadeploy"
	"github.com/getpup/schemadeploy/executor"
	"github.com/getpup/schemadeploy/internal/redact"
	"github.com/getpup/schemadeploy/notify"
	"github.com/getpup/schemadeploy/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schemaDir(t *testing.T, root, name string, files ...string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("--liquibase formatted sql\n"), 0o644))
	}
	return dir
}

type fixture struct {
	runner   *executor.MockRunner
	tracking *store.MockTrackingStore
	notifier *notify.MockNotifier
}

func newFixture() *fixture {
	return &fixture{
		runner:   executor.NewMockRunner(),
		tracking: store.NewMockTrackingStore(),
		notifier: notify.NewMockNotifier(),
	}
}

func (f *fixture) engine(t *testing.T, dirs ...string) *Engine {
	t.Helper()
	e, err := New(Config{
		Directories: dirs,
		Version:     "1.2.3",
		Host:        "db.internal",
		Runner:      f.runner,
		Tracking:    f.tracking,
		Notifier:    f.notifier,
		Redactor:    redact.New("s3cret"),
		RunID:       "run-1",
	})
	require.NoError(t, err)
	return e
}

func TestNew_AppliesDefaultValues(t *testing.T) {
	e, err := New(Config{
		Directories: []string{"a"},
		Version:     "1.0.0",
		Runner:      executor.NewMockRunner(),
		Tracking:    store.NewMockTrackingStore(),
	})
	require.NoError(t, err)

	assert.Equal(t, ".sql", e.config.Extension)
	assert.NotEmpty(t, e.config.RunID)
	assert.NotNil(t, e.config.Notifier)
	assert.NotNil(t, e.config.Logger)
	assert.NotZero(t, e.config.NotifyTimeout)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	valid := Config{
		Directories: []string{"a"},
		Version:     "1.0.0",
		Runner:      executor.NewMockRunner(),
		Tracking:    store.NewMockTrackingStore(),
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no directories", func(c *Config) { c.Directories = nil }},
		{"no version", func(c *Config) { c.Version = "" }},
		{"no runner", func(c *Config) { c.Runner = nil }},
		{"no tracking store", func(c *Config) { c.Tracking = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			_, err := New(cfg)
			assert.Error(t, err)
		})
	}
}

func TestRun_SortsFilesAndSkipsMissingDirectory(t *testing.T) {
	root := t.TempDir()
	a := schemaDir(t, root, "A", "2_add.sql", "1_init.sql")
	b := filepath.Join(root, "B")

	f := newFixture()
	status, err := f.engine(t, a, b).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, schemadeploy.StatusSuccess, status)
	assert.Equal(t, []string{a + "/1_init.sql", a + "/2_add.sql"}, f.runner.CallsFor("update"))
	assert.Equal(t, []string{"1.2.3", "1.2.3"}, f.runner.CallsFor("tag"))
}

func TestRun_TagsAfterEachFile(t *testing.T) {
	root := t.TempDir()
	a := schemaDir(t, root, "A", "1_init.sql", "2_add.sql")

	f := newFixture()
	_, err := f.engine(t, a).Run(context.Background())
	require.NoError(t, err)

	commands := make([]string, 0, len(f.runner.Calls))
	for _, c := range f.runner.Calls {
		commands = append(commands, c.Command)
	}
	assert.Equal(t, []string{"update", "tag", "update", "tag"}, commands)
}

func TestRun_ResetsLockOnceBeforeFirstDirectory(t *testing.T) {
	root := t.TempDir()
	a := schemaDir(t, root, "A", "1.sql")
	b := schemaDir(t, root, "B", "1.sql")

	f := newFixture()
	f.tracking.ReleaseLockFunc = func(ctx context.Context) error {
		assert.Empty(t, f.runner.Calls, "lock must be released before any deploy")
		return nil
	}

	_, err := f.engine(t, a, b).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, f.tracking.EnsureSchemaCalls)
	assert.Equal(t, 1, f.tracking.Resets())
}

func TestRun_SkipsIneligibleEntries(t *testing.T) {
	root := t.TempDir()
	a := schemaDir(t, root, "A", "1_init.sql", "README.md", "notes.txt")
	require.NoError(t, os.Mkdir(filepath.Join(a, "nested.sql"), 0o755))

	f := newFixture()
	_, err := f.engine(t, a).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{a + "/1_init.sql"}, f.runner.CallsFor("update"))
}

func TestRun_SuccessSendsSingleEnvelope(t *testing.T) {
	root := t.TempDir()
	a := schemaDir(t, root, "A", "1.sql")
	b := schemaDir(t, root, "B", "1.sql")

	f := newFixture()
	status, err := f.engine(t, a, b).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, status.ExitCode())

	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	env := sent[0]
	assert.Equal(t, schemadeploy.StatusSuccess, env.Status)
	assert.Equal(t, "run-1", env.RunID)
	assert.Equal(t, "db.internal", env.Host)
	assert.Equal(t, []string{a, b}, env.Directories)
	assert.Equal(t, "1.2.3", env.Version)
	assert.Equal(t, schemadeploy.NoneValue, env.ChangeLogFile)
	assert.Equal(t, schemadeploy.NoneValue, env.CausedBy)
}

func TestRun_NoExistingDirectoryStillSucceeds(t *testing.T) {
	root := t.TempDir()

	f := newFixture()
	status, err := f.engine(t, filepath.Join(root, "missing")).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, schemadeploy.StatusSuccess, status)
	assert.Zero(t, f.tracking.Resets())
	assert.Empty(t, f.runner.Calls)
	require.Len(t, f.notifier.Sent(), 1)
}

func TestRun_FileInPlaceOfDirectoryIsSkipped(t *testing.T) {
	root := t.TempDir()
	notDir := filepath.Join(root, "plain")
	require.NoError(t, os.WriteFile(notDir, nil, 0o644))
	a := schemaDir(t, root, "A", "1.sql")

	f := newFixture()
	status, err := f.engine(t, notDir, a).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, schemadeploy.StatusSuccess, status)
	assert.Equal(t, []string{a + "/1.sql"}, f.runner.CallsFor("update"))
}

func TestRun_DeployFailureAbortsAndReports(t *testing.T) {
	root := t.TempDir()
	a := schemaDir(t, root, "A", "1_foo.sql", "2_bar.sql")
	b := schemaDir(t, root, "B", "1.sql")

	output := "Starting Liquibase\n" +
		"Migration failed for changeset foo.sql::1::alice:\n" +
		"     Reason: liquibase.exception.DatabaseException\n" +
		"Caused by: constraint violation\n"

	f := newFixture()
	f.runner.UpdateFunc = func(ctx context.Context, file string) (schemadeploy.RunResult, error) {
		return executor.Failure(output, 1)
	}

	status, err := f.engine(t, a, b).Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, schemadeploy.ErrExecutionFailed)
	assert.Equal(t, schemadeploy.StatusFailed, status)
	assert.Equal(t, 1, status.ExitCode())

	assert.Equal(t, []string{a + "/1_foo.sql"}, f.runner.CallsFor("update"))
	assert.Empty(t, f.runner.CallsFor("tag"))

	sent := f.notifier.Sent()
	require.Len(t, sent, 1)
	env := sent[0]
	assert.Equal(t, schemadeploy.StatusFailed, env.Status)
	assert.Contains(t, env.CausedBy, "constraint violation")
	assert.Equal(t, "foo.sql::1::alice", env.FailedChangeset)
	assert.Equal(t, a+"/1_foo.sql", env.ChangeLogFile)
	assert.Contains(t, env.Traceback, "non-zero exit status 1")
}

func TestRun_FailureWithoutDiagnosticsUsesNone(t *testing.T) {
	root := t.TempDir()
	a := schemaDir(t, root, "A", "1.sql")

	f := newFixture()
	f.runner.UpdateFunc = func(ctx context.Context, file string) (schemadeploy.RunResult, error) {
		return executor.Failure("Unexpected error running Liquibase", 255)
	}

	_, err := f.engine(t, a).Run(context.Background())
	require.Error(t, err)

	env := f.notifier.Sent()[0]
	assert.Equal(t, schemadeploy.NoneValue, env.CausedBy)
	assert.Equal(t, schemadeploy.NoneValue, env.FailedChangeset)
}

func TestRun_TagFailureAbortsAndReports(t *testing.T) {
	root := t.TempDir()
	a := schemaDir(t, root, "A", "1.sql", "2.sql")

	f := newFixture()
	f.runner.TagFunc = func(ctx context.Context, tag string) (schemadeploy.RunResult, error) {
		return executor.Failure("Caused by: tag already exists", 1)
	}

	status, err := f.engine(t, a).Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, schemadeploy.StatusFailed, status)
	assert.Equal(t, []string{a + "/1.sql"}, f.runner.CallsFor("update"))

	env := f.notifier.Sent()[0]
	assert.Equal(t, a+"/1.sql", env.ChangeLogFile)
	assert.Equal(t, "Caused by: tag already exists", env.CausedBy)
}

func TestRun_LockResetFailureAbortsBeforeDeploy(t *testing.T) {
	root := t.TempDir()
	a := schemaDir(t, root, "A", "1.sql")

	f := newFixture()
	f.tracking.EnsureSchemaFunc = func(ctx context.Context) error {
		return errors.New("permission denied for database")
	}

	status, err := f.engine(t, a).Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, schemadeploy.ErrLockReset)
	assert.Equal(t, schemadeploy.StatusFailed, status)
	assert.Empty(t, f.runner.Calls)

	env := f.notifier.Sent()[0]
	assert.Equal(t, schemadeploy.StatusFailed, env.Status)
	assert.Equal(t, schemadeploy.NoneValue, env.ChangeLogFile)
	assert.Contains(t, env.CausedBy, "permission denied")
}

func TestRun_NotifierErrorDoesNotChangeOutcome(t *testing.T) {
	root := t.TempDir()
	a := schemaDir(t, root, "A", "1.sql")

	f := newFixture()
	f.notifier.NotifyFunc = func(ctx context.Context, envelope schemadeploy.NotificationEnvelope) error {
		return errors.New("smtp: connection refused")
	}

	status, err := f.engine(t, a).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, schemadeploy.StatusSuccess, status)
	assert.Len(t, f.notifier.Sent(), 1)
}

func TestRun_RedactsPasswordInReport(t *testing.T) {
	root := t.TempDir()
	a := schemaDir(t, root, "A", "1.sql")

	f := newFixture()
	f.runner.UpdateFunc = func(ctx context.Context, file string) (schemadeploy.RunResult, error) {
		output := "Caused by: login failed for s3cret\n"
		return schemadeploy.RunResult{Output: output, ExitCode: 1}, &executor.ExecutionError{
			Command:  "java -jar liquibase.jar --password=s3cret update",
			Output:   output,
			ExitCode: 1,
		}
	}

	_, err := f.engine(t, a).Run(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "s3cret")
	assert.Contains(t, err.Error(), "--password="+redact.Mask)
	assert.ErrorIs(t, err, schemadeploy.ErrExecutionFailed)

	var execErr *executor.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, 1, execErr.ExitCode)

	env := f.notifier.Sent()[0]
	assert.NotContains(t, env.Traceback, "s3cret")
	assert.Contains(t, env.Traceback, "--password="+redact.Mask+" update")
	assert.NotContains(t, env.CausedBy, "s3cret")
}

func TestRun_CancelledContextStillReports(t *testing.T) {
	root := t.TempDir()
	a := schemaDir(t, root, "A", "1.sql")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newFixture()
	var notifyErr error
	f.notifier.NotifyFunc = func(ctx context.Context, envelope schemadeploy.NotificationEnvelope) error {
		notifyErr = ctx.Err()
		return nil
	}

	status, err := f.engine(t, a).Run(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, schemadeploy.StatusFailed, status)
	assert.Empty(t, f.runner.Calls)
	require.Len(t, f.notifier.Sent(), 1)
	assert.NoError(t, notifyErr)
}

func TestRun_RecordsPhases(t *testing.T) {
	root := t.TempDir()
	a := schemaDir(t, root, "A", "1.sql")

	f := newFixture()
	e := f.engine(t, a)
	_, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []schemadeploy.Phase{
		schemadeploy.PhaseIdle,
		schemadeploy.PhaseLockReset,
		schemadeploy.PhaseProcessingDirectory,
		schemadeploy.PhaseDeploying,
		schemadeploy.PhaseTagging,
		schemadeploy.PhaseReporting,
	}, e.Phases())
}

func TestDiagnose_NonExecutionErrorIsCause(t *testing.T) {
	report := Diagnose(errors.New("dial tcp: password s3cret rejected"), redact.New("s3cret"))

	require.NotNil(t, report.CausedBy)
	assert.Equal(t, "dial tcp: password "+redact.Mask+" rejected", *report.CausedBy)
	assert.Nil(t, report.FailedChangeset)
}
