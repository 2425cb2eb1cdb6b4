package main

import (
	"errors"
	"os"
	"strings"

	schemadeploy "github.com/getpup/schemadeploy"
	"github.com/getpup/schemadeploy/versioning"
)

// BumpCommand advances the version stored in the VERSION file.
type BumpCommand struct {
	*meta
}

func (c *BumpCommand) Synopsis() string {
	return "Bump the persisted release version"
}

func (c *BumpCommand) Help() string {
	return strings.TrimSpace(`
Usage: schemadeploy bump [options] <major|minor|patch|prerelease>

  Reads the version file, bumps the requested part, writes the result back
  and prints it. A missing file starts from the build default version.

    major       1.2.3 -> 2.0.0
    minor       1.2.3 -> 1.3.0
    patch       1.2.3 -> 1.2.4, 1.2.3-rc.1 -> 1.2.3
    prerelease  1.2.3 -> 1.2.4-rc.0, 1.2.4-rc.0 -> 1.2.4-rc.1

Options:

  -file=<path>      Version file (default: $VERSION_FILE, or VERSION).

  -env-file=<path>  Load variables from this .env file (default: .env).
`)
}

func (c *BumpCommand) Run(args []string) int {
	var file string
	flags := c.flagSet("bump")
	flags.StringVar(&file, "file", "", "")
	if err := flags.Parse(args); err != nil {
		return c.usageError(c.Help(), "%s", err)
	}
	if flags.NArg() != 1 {
		return c.usageError(c.Help(), "bump takes exactly one argument")
	}

	if file == "" {
		cfg, err := c.processConfig()
		if err != nil {
			c.ui.Error(err.Error())
			return exitFailure
		}
		file = cfg.VersionFile
	}
	if file == "" {
		file = "VERSION"
	}

	current, err := versioning.ReadVersionFile(file)
	if errors.Is(err, os.ErrNotExist) {
		current = versioning.DefaultVersion
	} else if err != nil {
		c.ui.Error(err.Error())
		return exitFailure
	}

	next, err := versioning.Bump(current, versioning.Part(flags.Arg(0)))
	if errors.Is(err, schemadeploy.ErrInvalidVersionPart) {
		return c.usageError(c.Help(), "%s", err)
	}
	if err != nil {
		c.ui.Error(err.Error())
		return exitFailure
	}

	if err := versioning.WriteVersionFile(file, next); err != nil {
		c.ui.Error(err.Error())
		return exitFailure
	}

	c.ui.Output(next)
	return exitSuccess
}
