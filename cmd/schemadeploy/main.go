// Command schemadeploy deploys Liquibase changelog directories and manages
// the release version they are tagged with.
//
// Usage:
//
//	schemadeploy deploy                 apply every schema directory
//	schemadeploy bump <part>            bump the VERSION file
//	schemadeploy version                print the resolved release version
//	schemadeploy rollback <tag>         roll back to a tag
//	schemadeploy rollback-to-date <ts>  roll back to a point in time
//	schemadeploy new <name>             scaffold a changelog file
//
// Exit codes: 0 success, 1 deploy or command failure, 2 usage or configuration error.
package main

import (
	"os"
)

func main() {
	os.Exit(Run(os.Args[1:], &RunOptions{}))
}
