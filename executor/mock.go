package executor

import (
	"context"
	"sync"
	"time"

	schemadeploy "github.com/getpup/schemadeploy"
)

// MockRunner is a mock implementation of Runner for testing.
type MockRunner struct {
	mu sync.Mutex

	UpdateFunc         func(ctx context.Context, changelogFile string) (schemadeploy.RunResult, error)
	TagFunc            func(ctx context.Context, tag string) (schemadeploy.RunResult, error)
	RollbackFunc       func(ctx context.Context, tag string) (schemadeploy.RunResult, error)
	RollbackToDateFunc func(ctx context.Context, at time.Time) (schemadeploy.RunResult, error)

	// Calls records every invocation in order.
	Calls []Call
}

// Call records the parameters of a single invocation.
type Call struct {
	Command string
	Arg     string
}

// NewMockRunner creates a new MockRunner with an empty call history.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		Calls: make([]Call, 0),
	}
}

func (m *MockRunner) record(command, arg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, Call{Command: command, Arg: arg})
}

func succeeded() (schemadeploy.RunResult, error) {
	return schemadeploy.RunResult{Succeeded: true}, nil
}

// Update implements Runner. Without UpdateFunc it succeeds.
func (m *MockRunner) Update(ctx context.Context, changelogFile string) (schemadeploy.RunResult, error) {
	m.record("update", changelogFile)
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, changelogFile)
	}
	return succeeded()
}

// Tag implements Runner. Without TagFunc it succeeds.
func (m *MockRunner) Tag(ctx context.Context, tag string) (schemadeploy.RunResult, error) {
	m.record("tag", tag)
	if m.TagFunc != nil {
		return m.TagFunc(ctx, tag)
	}
	return succeeded()
}

// Rollback implements Runner. Without RollbackFunc it succeeds.
func (m *MockRunner) Rollback(ctx context.Context, tag string) (schemadeploy.RunResult, error) {
	m.record("rollback", tag)
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx, tag)
	}
	return succeeded()
}

// RollbackToDate implements Runner. Without RollbackToDateFunc it succeeds.
func (m *MockRunner) RollbackToDate(ctx context.Context, at time.Time) (schemadeploy.RunResult, error) {
	m.record("rollbackToDate", at.Format(rollbackDateLayout))
	if m.RollbackToDateFunc != nil {
		return m.RollbackToDateFunc(ctx, at)
	}
	return succeeded()
}

// CallsFor returns the arguments of every call to command, in order.
func (m *MockRunner) CallsFor(command string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var args []string
	for _, c := range m.Calls {
		if c.Command == command {
			args = append(args, c.Arg)
		}
	}
	return args
}

// Reset clears the call history.
func (m *MockRunner) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = make([]Call, 0)
}

// Failure returns a RunResult and error as the Executor reports a non-zero exit.
func Failure(output string, exitCode int) (schemadeploy.RunResult, error) {
	return schemadeploy.RunResult{Output: output, ExitCode: exitCode},
		&ExecutionError{Command: "liquibase", Output: output, ExitCode: exitCode}
}
