package main

import (
	"strings"
)

// VersionCommand prints the release version a deploy would tag.
type VersionCommand struct {
	*meta
}

func (c *VersionCommand) Synopsis() string {
	return "Print the resolved release version"
}

func (c *VersionCommand) Help() string {
	return strings.TrimSpace(`
Usage: schemadeploy version [options]

  Prints the first of TAG, SCHEMA_VERSION, the version file and the build
  default that is set.

Options:

  -env-file=<path>  Load variables from this .env file; may be repeated.
`)
}

func (c *VersionCommand) Run(args []string) int {
	flags := c.flagSet("version")
	if err := flags.Parse(args); err != nil {
		return c.usageError(c.Help(), "%s", err)
	}

	cfg, err := c.processConfig()
	if err != nil {
		c.ui.Error(err.Error())
		return exitUsage
	}

	c.ui.Output(cfg.Version())
	return exitSuccess
}
