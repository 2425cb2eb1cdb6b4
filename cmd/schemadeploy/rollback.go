package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	schemadeploy "github.com/getpup/schemadeploy"
	"github.com/getpup/schemadeploy/config"
	"github.com/getpup/schemadeploy/deploy"
	"github.com/getpup/schemadeploy/diagnose"
	"github.com/getpup/schemadeploy/executor"
	"github.com/getpup/schemadeploy/internal/redact"
	"github.com/getpup/schemadeploy/pkg/deployer"
	"github.com/hashicorp/go-hclog"
)

// rollbackDateLayouts are the accepted rollback-to-date formats.
var rollbackDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// RollbackCommand reverts the database to a tag.
type RollbackCommand struct {
	*meta
}

func (c *RollbackCommand) Synopsis() string {
	return "Roll back every changeset applied after a tag"
}

func (c *RollbackCommand) Help() string {
	return strings.TrimSpace(`
Usage: schemadeploy rollback [options] <tag>

  Rolls back every changeset applied after the given tag. Each deploy tags
  the database with its release version after every file.

Options:

  -env-file=<path>  Load variables from this .env file; may be repeated.
`)
}

func (c *RollbackCommand) Run(args []string) int {
	flags := c.flagSet("rollback")
	if err := flags.Parse(args); err != nil {
		return c.usageError(c.Help(), "%s", err)
	}
	if flags.NArg() != 1 || flags.Arg(0) == "" {
		return c.usageError(c.Help(), "rollback takes exactly one tag")
	}
	tag := flags.Arg(0)

	return c.rollback(func(ctx context.Context, r executor.Runner) (schemadeploy.RunResult, error) {
		return r.Rollback(ctx, tag)
	}, "tag", tag)
}

// RollbackToDateCommand reverts the database to a point in time.
type RollbackToDateCommand struct {
	*meta
}

func (c *RollbackToDateCommand) Synopsis() string {
	return "Roll back every changeset applied after a point in time"
}

func (c *RollbackToDateCommand) Help() string {
	return strings.TrimSpace(`
Usage: schemadeploy rollback-to-date [options] <timestamp>

  Rolls back every changeset applied after the timestamp, given as
  YYYY-MM-DDTHH:MM:SS, "YYYY-MM-DD HH:MM:SS" or YYYY-MM-DD, in the
  database's local time.

Options:

  -env-file=<path>  Load variables from this .env file; may be repeated.
`)
}

func (c *RollbackToDateCommand) Run(args []string) int {
	flags := c.flagSet("rollback-to-date")
	if err := flags.Parse(args); err != nil {
		return c.usageError(c.Help(), "%s", err)
	}
	if flags.NArg() != 1 {
		return c.usageError(c.Help(), "rollback-to-date takes exactly one timestamp")
	}

	at, err := parseRollbackDate(flags.Arg(0))
	if err != nil {
		return c.usageError(c.Help(), "%s", err)
	}

	return (&RollbackCommand{meta: c.meta}).rollback(func(ctx context.Context, r executor.Runner) (schemadeploy.RunResult, error) {
		return r.RollbackToDate(ctx, at)
	}, "date", at.Format(rollbackDateLayouts[0]))
}

func parseRollbackDate(s string) (time.Time, error) {
	for _, layout := range rollbackDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q: expected YYYY-MM-DDTHH:MM:SS", s)
}

type rollbackFunc func(ctx context.Context, r executor.Runner) (schemadeploy.RunResult, error)

// rollback loads the configuration, runs fn against the Liquibase executor
// and logs the redacted tool output.
func (c *RollbackCommand) rollback(fn rollbackFunc, target ...interface{}) int {
	cfg, err := c.loadConfig()
	if err != nil {
		c.ui.Error(err.Error())
		return exitUsage
	}

	logger := c.logger(cfg.LogLevel)
	redactor := redact.New(cfg.Secrets()...)

	ctx, cancel := signalContext(logger)
	defer cancel()

	return runRollback(ctx, cfg, deployer.NewRunner(cfg, logger, redactor), logger, redactor, fn, target...)
}

func runRollback(ctx context.Context, cfg config.Config, r executor.Runner, logger hclog.Logger, redactor *redact.Redactor, fn rollbackFunc, target ...interface{}) int {
	logger.Info("rolling back", append([]interface{}{"database", cfg.Database.Name}, target...)...)

	result, err := fn(ctx, r)
	if err != nil {
		report := deploy.Diagnose(err, redactor)
		logger.Error("rollback failed",
			"caused_by", diagnose.Or(report.CausedBy, schemadeploy.NoneValue),
			"error", report.Traceback,
		)
		return exitFailure
	}

	logger.Info("rollback complete", append([]interface{}{"duration", result.Duration}, target...)...)
	logger.Debug("migration tool output", "output", redactor.Redact(result.Output))
	return exitSuccess
}
