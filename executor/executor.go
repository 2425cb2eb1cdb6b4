package executor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	schemadeploy "github.com/getpup/schemadeploy"
	"github.com/getpup/schemadeploy/internal/redact"
	"github.com/hashicorp/go-hclog"
)

// MainClass is the migration tool's command-line entry point.
const MainClass = "liquibase.integration.commandline.Main"

// rollbackDateLayout is the timestamp layout accepted by rollbackToDate.
const rollbackDateLayout = "2006-01-02T15:04:05"

// Config configures the Liquibase executor.
type Config struct {
	// JavaBin is the java executable (default: "java").
	JavaBin string

	// LiquibaseJar is the Liquibase core jar put on the JVM class path (required).
	LiquibaseJar string

	// ConnectorJar is the JDBC driver jar passed as --classpath (required).
	ConnectorJar string

	// Dialect selects the JDBC driver class and URL format (default: postgres).
	Dialect schemadeploy.Dialect

	Host     string
	Port     string
	Database string
	Username string
	Password string

	// TrackingSchema holds the changelog and lock tables (default: "db_logs").
	TrackingSchema string

	// LogLevel is passed as --logLevel (default: "info").
	LogLevel string

	// Timeout bounds a single invocation (default: 30m).
	Timeout time.Duration

	// Logger is an optional logger for observability.
	Logger hclog.Logger

	// Redactor masks credentials in logged command lines. Nil masks only --password=.
	Redactor *redact.Redactor
}

// Executor runs Liquibase as a subprocess.
type Executor struct {
	config Config
}

// Compile-time check that Executor implements Runner.
var _ Runner = (*Executor)(nil)

// New creates a new Executor with the given configuration.
// It applies default values for unset optional fields.
func New(cfg Config) *Executor {
	if cfg.JavaBin == "" {
		cfg.JavaBin = "java"
	}
	if cfg.Dialect == "" {
		cfg.Dialect = schemadeploy.DialectPostgres
	}
	if cfg.TrackingSchema == "" {
		cfg.TrackingSchema = "db_logs"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	return &Executor{
		config: cfg,
	}
}

// Update applies the pending changesets of changelogFile.
func (e *Executor) Update(ctx context.Context, changelogFile string) (schemadeploy.RunResult, error) {
	return e.run(ctx, changelogFile, "update")
}

// Tag records tag in the change-tracking table.
func (e *Executor) Tag(ctx context.Context, tag string) (schemadeploy.RunResult, error) {
	return e.run(ctx, "", "tag", tag)
}

// Rollback reverts every changeset applied after tag.
func (e *Executor) Rollback(ctx context.Context, tag string) (schemadeploy.RunResult, error) {
	return e.run(ctx, "", "rollback", tag)
}

// RollbackToDate reverts every changeset applied after at.
func (e *Executor) RollbackToDate(ctx context.Context, at time.Time) (schemadeploy.RunResult, error) {
	return e.run(ctx, "", "rollbackToDate", at.Format(rollbackDateLayout))
}

// driver returns the JDBC driver class and connection URL for the dialect.
func (e *Executor) driver() (string, string, error) {
	c := e.config
	switch c.Dialect {
	case schemadeploy.DialectPostgres:
		return "org.postgresql.Driver", "jdbc:postgresql://" + net.JoinHostPort(c.Host, c.Port) + "/" + c.Database, nil
	case schemadeploy.DialectMySQL:
		return "com.mysql.cj.jdbc.Driver", "jdbc:mysql://" + net.JoinHostPort(c.Host, c.Port) + "/" + c.Database, nil
	case schemadeploy.DialectSQLite:
		return "org.sqlite.JDBC", "jdbc:sqlite:" + c.Database, nil
	default:
		return "", "", fmt.Errorf("%w: %q", schemadeploy.ErrUnsupportedDialect, c.Dialect)
	}
}

// Args builds the java arguments for one invocation. changelogFile may be
// empty for commands that do not read a changelog.
func (e *Executor) Args(changelogFile, command string, commandArgs ...string) ([]string, error) {
	driverClass, url, err := e.driver()
	if err != nil {
		return nil, err
	}

	c := e.config
	args := []string{
		"-cp", c.LiquibaseJar,
		MainClass,
		"--driver=" + driverClass,
		"--classpath=" + c.ConnectorJar,
	}
	if changelogFile != "" {
		args = append(args, "--changeLogFile="+changelogFile)
	}
	args = append(args,
		"--url="+url,
		"--username="+c.Username,
		"--password="+c.Password,
		"--liquibaseSchemaName="+c.TrackingSchema,
		"--logLevel="+c.LogLevel,
		command,
	)
	return append(args, commandArgs...), nil
}

func (e *Executor) run(ctx context.Context, changelogFile, command string, commandArgs ...string) (schemadeploy.RunResult, error) {
	args, err := e.Args(changelogFile, command, commandArgs...)
	if err != nil {
		return schemadeploy.RunResult{ExitCode: -1}, err
	}

	commandLine := e.config.JavaBin + " " + strings.Join(args, " ")
	e.config.Logger.Info("running migration tool", "command", e.config.Redactor.Redact(commandLine))

	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.config.JavaBin, args...)
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	out, runErr := cmd.CombinedOutput()
	result := schemadeploy.RunResult{
		Output:   string(out),
		Duration: time.Since(start),
	}

	if runErr == nil {
		result.Succeeded = true
		return result, nil
	}

	execErr := &ExecutionError{Command: commandLine, Output: result.Output, ExitCode: -1}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		execErr.Err = fmt.Errorf("%w after %s", schemadeploy.ErrTimeout, e.config.Timeout)
	case ctx.Err() != nil:
		execErr.Err = ctx.Err()
	case errors.As(runErr, &exitErr):
		execErr.ExitCode = exitErr.ExitCode()
	default:
		execErr.Err = runErr
	}
	result.ExitCode = execErr.ExitCode

	e.config.Logger.Error("migration tool failed",
		"command", command,
		"exit_code", execErr.ExitCode,
		"duration", result.Duration,
	)

	return result, execErr
}
