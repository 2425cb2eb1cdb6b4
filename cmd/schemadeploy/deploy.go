package main

import (
	"context"
	"strings"
	"time"

	schemadeploy "github.com/getpup/schemadeploy"
	"github.com/getpup/schemadeploy/config"
	"github.com/getpup/schemadeploy/deploy"
	"github.com/getpup/schemadeploy/internal/redact"
	"github.com/getpup/schemadeploy/metrics"
	"github.com/getpup/schemadeploy/pkg/deployer"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// DeployCommand applies every configured schema directory.
type DeployCommand struct {
	*meta
}

func (c *DeployCommand) Synopsis() string {
	return "Deploy every schema directory and tag the release version"
}

func (c *DeployCommand) Help() string {
	return strings.TrimSpace(`
Usage: schemadeploy deploy [options]

  Releases the stale tracking lock, applies the changelog files of every
  directory in AVAILABLE_SCHEMAS in filename order, and tags the database with
  the release version after each file. The first failure aborts the run.
  A single report is sent when the run ends.

Options:

  -env-file=<path>  Load variables from this .env file; may be repeated.
  -run-id=<id>      Identifier for logs and the report (default: random UUID).
`)
}

func (c *DeployCommand) Run(args []string) int {
	var runID string
	flags := c.flagSet("deploy")
	flags.StringVar(&runID, "run-id", "", "")
	if err := flags.Parse(args); err != nil {
		return c.usageError(c.Help(), "%s", err)
	}
	if flags.NArg() > 0 {
		return c.usageError(c.Help(), "deploy takes no arguments, got %q", flags.Args())
	}
	if runID == "" {
		runID = uuid.NewString()
	}

	cfg, err := c.loadConfig()
	if err != nil {
		c.ui.Error(err.Error())
		return exitUsage
	}

	logger := c.logger(cfg.LogLevel)
	redactor := redact.New(cfg.Secrets()...)

	ctx, cancel := signalContext(logger)
	defer cancel()

	logger.Info("connecting to tracking database",
		"type", cfg.Database.Type,
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
		"user", cfg.Database.User,
		"password", redact.Mask,
	)

	d, err := deployer.New(ctx, cfg,
		deployer.WithLogger(logger),
		deployer.WithRunID(runID),
	)
	if err != nil {
		return c.reportSetupFailure(ctx, cfg, runID, logger, redactor, err)
	}
	defer d.Close()

	status, err := d.Run(ctx)
	if err != nil {
		logger.Error("schema deployment failed", "error", redactor.Redact(err.Error()))
	}

	c.pushMetrics(cfg, logger)

	return status.ExitCode()
}

// reportSetupFailure handles a run that could not reach the engine, e.g. an
// unreachable tracking database. It is reported like a failed lock reset.
func (c *DeployCommand) reportSetupFailure(ctx context.Context, cfg config.Config, runID string, logger hclog.Logger, r *redact.Redactor, err error) int {
	logger.Error("failed to prepare deployment", "error", r.Redact(err.Error()))

	report := deploy.Diagnose(err, r)
	envelope := schemadeploy.NewFailureEnvelope(runID, cfg.Target(), cfg.Schemas, cfg.Version(), "", report)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()
	if nerr := deployer.NewNotifier(cfg, logger, r).Notify(ctx, envelope); nerr != nil {
		logger.Error("failed to send notification", "error", r.Redact(nerr.Error()))
	}

	return schemadeploy.StatusFailed.ExitCode()
}

func (c *DeployCommand) pushMetrics(cfg config.Config, logger hclog.Logger) {
	if cfg.PushgatewayURL == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pusher := metrics.NewPusher(cfg.PushgatewayURL, metrics.DefaultJob, nil).
		Grouping("database", cfg.Database.Name)
	if err := pusher.Push(ctx); err != nil {
		logger.Warn("failed to push metrics", "error", err)
		return
	}
	logger.Debug("metrics pushed", "url", cfg.PushgatewayURL)
}
