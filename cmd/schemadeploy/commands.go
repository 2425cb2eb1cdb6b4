package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/getpup/schemadeploy/config"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
)

const (
	exitSuccess = 0
	exitFailure = 1
	exitUsage   = 2
)

// RunOptions overrides the process streams, for tests.
type RunOptions struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes the subcommand named by args and returns the exit code.
func Run(args []string, runOpts *RunOptions) int {
	if runOpts == nil {
		runOpts = &RunOptions{}
	}
	if runOpts.Stdout == nil {
		runOpts.Stdout = os.Stdout
	}
	if runOpts.Stderr == nil {
		runOpts.Stderr = os.Stderr
	}

	ui := &cli.BasicUi{
		Writer:      runOpts.Stdout,
		ErrorWriter: runOpts.Stderr,
	}
	m := &meta{ui: ui, stderr: runOpts.Stderr}

	c := &cli.CLI{
		Name:       "schemadeploy",
		Args:       args,
		Commands:   commands(m),
		HelpFunc:   cli.BasicHelpFunc("schemadeploy"),
		HelpWriter: runOpts.Stderr,
	}

	exitCode, err := c.Run()
	if err != nil {
		fmt.Fprintf(runOpts.Stderr, "Error executing CLI: %s\n", err.Error())
		return exitFailure
	}
	// cli reports a missing or unknown command with 127.
	if exitCode == 127 {
		return exitUsage
	}
	return exitCode
}

func commands(m *meta) map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"deploy": func() (cli.Command, error) {
			return &DeployCommand{meta: m}, nil
		},
		"bump": func() (cli.Command, error) {
			return &BumpCommand{meta: m}, nil
		},
		"version": func() (cli.Command, error) {
			return &VersionCommand{meta: m}, nil
		},
		"rollback": func() (cli.Command, error) {
			return &RollbackCommand{meta: m}, nil
		},
		"rollback-to-date": func() (cli.Command, error) {
			return &RollbackToDateCommand{meta: m}, nil
		},
		"new": func() (cli.Command, error) {
			return &NewCommand{meta: m}, nil
		},
	}
}

// meta holds what every command shares.
type meta struct {
	ui     cli.Ui
	stderr io.Writer

	envFiles stringSlice
}

// flagSet returns a flag set that reports errors through the UI and accepts
// the common -env-file flag.
func (m *meta) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Var(&m.envFiles, "env-file", "Load variables from this .env file; may be repeated (default: .env)")
	return fs
}

// usageError reports a usage problem followed by the command help.
func (m *meta) usageError(help, format string, args ...interface{}) int {
	m.ui.Error(fmt.Sprintf(format, args...))
	m.ui.Error("")
	m.ui.Error(strings.TrimSpace(help))
	return exitUsage
}

func (m *meta) loadConfig() (config.Config, error) {
	return config.Load(m.envFiles...)
}

// processConfig reads the environment without requiring connection settings.
func (m *meta) processConfig() (config.Config, error) {
	if err := config.LoadEnvFiles(m.envFiles...); err != nil {
		return config.Config{}, err
	}
	return config.Process()
}

func (m *meta) logger(level string) hclog.Logger {
	l := hclog.LevelFromString(level)
	if l == hclog.NoLevel {
		l = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "schemadeploy",
		Level:  l,
		Output: m.stderr,
	})
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(logger hclog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Warn("received shutdown signal, aborting", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// stringSlice is a repeatable string flag.
type stringSlice []string

func (s *stringSlice) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSlice) Set(v string) error {
	*s = append(*s, v)
	return nil
}
