package schemadeploy

import (
	"time"
)

// Status is the outcome reported for a deploy run.
type Status string

const (
	// StatusSuccess indicates every eligible changelog file was deployed and tagged.
	StatusSuccess Status = "SUCCESS"

	// StatusFailed indicates the run aborted on the first failure.
	StatusFailed Status = "FAILED"
)

// ExitCode maps a status to the process exit code.
func (s Status) ExitCode() int {
	if s == StatusSuccess {
		return 0
	}
	return 1
}

// Phase is the current step of the deploy state machine.
type Phase string

const (
	PhaseIdle                Phase = "idle"
	PhaseLockReset           Phase = "lock_reset"
	PhaseProcessingDirectory Phase = "processing_directory"
	PhaseDeploying           Phase = "deploying"
	PhaseTagging             Phase = "tagging"
	PhaseReporting           Phase = "reporting"
)

// Dialect names the database type being migrated.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
)

// Valid reports whether the dialect has a store and JDBC mapping.
func (d Dialect) Valid() bool {
	switch d {
	case DialectPostgres, DialectMySQL, DialectSQLite:
		return true
	}
	return false
}

// RunResult is produced by a single migration tool invocation.
// It is consumed immediately and never persisted.
type RunResult struct {
	// Succeeded is true when the tool exited with status 0.
	Succeeded bool

	// Output is the combined stdout and stderr of the tool.
	Output string

	// ExitCode is the process exit status, or -1 if the process never exited normally.
	ExitCode int

	// Duration is the wall time of the invocation.
	Duration time.Duration
}

// FailureReport describes why a deploy failed.
// CausedBy and FailedChangeset are nil when they could not be determined.
type FailureReport struct {
	// CausedBy is the root-cause fragment of the tool output.
	CausedBy *string

	// FailedChangeset is the path::id::author identifier of the failing changeset.
	FailedChangeset *string

	// Traceback is the error chain text with credentials masked.
	Traceback string
}

// NoneValue is rendered for envelope fields that do not apply.
const NoneValue = "None"

// NotificationEnvelope is the single report dispatched at the end of a run.
type NotificationEnvelope struct {
	RunID           string
	Status          Status
	Host            string
	Directories     []string
	Version         string
	ChangeLogFile   string
	FailedChangeset string
	CausedBy        string
	Traceback       string
}

// NewSuccessEnvelope builds the envelope for a completed run.
func NewSuccessEnvelope(runID, host string, directories []string, version string) NotificationEnvelope {
	return NotificationEnvelope{
		RunID:           runID,
		Status:          StatusSuccess,
		Host:            host,
		Directories:     directories,
		Version:         version,
		ChangeLogFile:   NoneValue,
		FailedChangeset: NoneValue,
		CausedBy:        NoneValue,
		Traceback:       NoneValue,
	}
}

// NewFailureEnvelope builds the envelope for an aborted run.
// changeLogFile may be empty when the failure was not tied to a file.
func NewFailureEnvelope(runID, host string, directories []string, version, changeLogFile string, report FailureReport) NotificationEnvelope {
	return NotificationEnvelope{
		RunID:           runID,
		Status:          StatusFailed,
		Host:            host,
		Directories:     directories,
		Version:         version,
		ChangeLogFile:   orNone(&changeLogFile),
		FailedChangeset: orNone(report.FailedChangeset),
		CausedBy:        orNone(report.CausedBy),
		Traceback:       report.Traceback,
	}
}

func orNone(s *string) string {
	if s == nil || *s == "" {
		return NoneValue
	}
	return *s
}
