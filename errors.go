package schemadeploy

import "errors"

var (
	// ErrExecutionFailed indicates the migration tool exited with a non-zero status.
	// The accompanying error carries the captured tool output for diagnosis.
	ErrExecutionFailed = errors.New("execution failed")

	// ErrTimeout indicates the migration tool did not exit within the configured bound.
	ErrTimeout = errors.New("migration tool timed out")

	// ErrLockReset indicates the tracking schema or lock row could not be prepared.
	// This is fatal: no migration is attempted after it.
	ErrLockReset = errors.New("lock reset failed")

	// ErrInvalidVersionPart indicates an unknown bump part was requested.
	ErrInvalidVersionPart = errors.New("invalid version part")

	// ErrInvalidVersion indicates a version string that is not major.minor.patch[-rc.N].
	ErrInvalidVersion = errors.New("invalid version")

	// ErrUnsupportedDialect indicates a database type with no driver or JDBC mapping.
	ErrUnsupportedDialect = errors.New("unsupported database type")
)
