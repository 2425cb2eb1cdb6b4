package executor

import (
	"context"
	"time"

	schemadeploy "github.com/getpup/schemadeploy"
)

// Runner invokes the external migration tool.
// This interface allows for mock implementations in tests.
//
// Every method returns the captured RunResult. A non-zero exit is reported as
// an error wrapping schemadeploy.ErrExecutionFailed; use errors.As with
// *ExecutionError to reach the captured output.
type Runner interface {
	// Update applies the pending changesets of a changelog file.
	Update(ctx context.Context, changelogFile string) (schemadeploy.RunResult, error)

	// Tag records tag against the current change-tracking state.
	Tag(ctx context.Context, tag string) (schemadeploy.RunResult, error)

	// Rollback reverts changesets applied after tag.
	Rollback(ctx context.Context, tag string) (schemadeploy.RunResult, error)

	// RollbackToDate reverts changesets applied after at.
	RollbackToDate(ctx context.Context, at time.Time) (schemadeploy.RunResult, error)
}
