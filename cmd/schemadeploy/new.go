package main

import (
	"strings"

	schemadeploy "github.com/getpup/schemadeploy"
	"github.com/getpup/schemadeploy/pkg/changelog"
)

// NewCommand scaffolds a changelog file.
type NewCommand struct {
	*meta
}

func (c *NewCommand) Synopsis() string {
	return "Create a new changelog file"
}

func (c *NewCommand) Help() string {
	return strings.TrimSpace(`
Usage: schemadeploy new [options] <name>

  Writes <timestamp>_<name>.sql with a Liquibase formatted-SQL header into
  the schema directory. Names use lowercase letters, numbers and underscores.

Options:

  -dir=<path>        Schema directory (default: schemas).
  -author=<name>     Changeset author (default: schemadeploy).
  -dialect=<type>    postgres, mysql, sqlite or any (default: postgres).
`)
}

func (c *NewCommand) Run(args []string) int {
	cfg := changelog.DefaultConfig()

	var dialect string
	flags := c.flagSet("new")
	flags.StringVar(&cfg.OutputFolder, "dir", cfg.OutputFolder, "")
	flags.StringVar(&cfg.Author, "author", cfg.Author, "")
	flags.StringVar(&dialect, "dialect", string(cfg.Dialect), "")
	if err := flags.Parse(args); err != nil {
		return c.usageError(c.Help(), "%s", err)
	}
	if flags.NArg() != 1 {
		return c.usageError(c.Help(), "new takes exactly one name")
	}

	cfg.Name = flags.Arg(0)
	cfg.Dialect = schemadeploy.Dialect(dialect)
	if dialect == "any" {
		cfg.Dialect = ""
	}

	path, err := changelog.Generate(&cfg)
	if err != nil {
		c.ui.Error(err.Error())
		return exitFailure
	}

	c.ui.Output(path)
	return exitSuccess
}
