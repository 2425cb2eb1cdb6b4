package executor

import (
	"fmt"

	schemadeploy "github.com/getpup/schemadeploy"
)

// ExecutionError reports a migration tool invocation that did not exit cleanly.
//
// Command is the full command line including credentials; Error() includes it,
// so the message must be redacted before it is logged or forwarded.
type ExecutionError struct {
	Command  string
	Output   string
	ExitCode int
	Err      error
}

func (e *ExecutionError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("command '%s' returned non-zero exit status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("command '%s' failed: %v", e.Command, e.Err)
}

// Unwrap exposes ErrExecutionFailed and the underlying cause.
func (e *ExecutionError) Unwrap() []error {
	if e.Err == nil {
		return []error{schemadeploy.ErrExecutionFailed}
	}
	return []error{schemadeploy.ErrExecutionFailed, e.Err}
}
