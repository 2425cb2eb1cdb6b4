package schemadeploy

import "context"

// Deployer applies changelog files from a set of schema directories and
// reports the outcome exactly once.
type Deployer interface {
	// Run deploys every eligible changelog file in order.
	//
	// The deployer will:
	// 1. Skip configured directories that do not exist
	// 2. Reset the tracking lock once, before the first existing directory
	// 3. Deploy each eligible file in lexicographic order, tagging after each
	// 4. Abort on the first failure, diagnosing and reporting it
	// 5. Report success when every file has been deployed
	//
	// Run returns StatusFailed with a non-nil error when the run aborted.
	// The notification has been dispatched (or its failure logged) by the time Run returns.
	Run(ctx context.Context) (Status, error)
}
