// Command changelog-gen scaffolds a Liquibase formatted-SQL changelog file.
//
// Usage:
//
//	go run github.com/getpup/schemadeploy/cmd/changelog-gen -output schemas/app -name add_users_table
//
// Or with go generate:
//
//	//go:generate go run github.com/getpup/schemadeploy/cmd/changelog-gen -output schemas/app -name init
//
// Restrict the changeset to a database type:
//
//	go run github.com/getpup/schemadeploy/cmd/changelog-gen -dialect mysql -output schemas/app -name init
//	go run github.com/getpup/schemadeploy/cmd/changelog-gen -dialect any -output schemas/app -name init
package main

import (
	"flag"
	"fmt"
	"os"

	schemadeploy "github.com/getpup/schemadeploy"
	"github.com/getpup/schemadeploy/pkg/changelog"
)

func main() {
	defaults := changelog.DefaultConfig()

	var (
		dialect      = flag.String("dialect", string(defaults.Dialect), "Database type: postgres, mysql, sqlite, or any")
		outputFolder = flag.String("output", defaults.OutputFolder, "Schema directory for the changelog file")
		name         = flag.String("name", "", "Change name, e.g. add_users_table (required)")
		author       = flag.String("author", defaults.Author, "Changeset author")
	)

	flag.Parse()

	config := defaults
	config.OutputFolder = *outputFolder
	config.Name = *name
	config.Author = *author
	config.Dialect = schemadeploy.Dialect(*dialect)
	if *dialect == "any" {
		config.Dialect = ""
	}

	path, err := changelog.Generate(&config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating changelog: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated changelog: %s\n", path)
}
