// Package diagnose extracts the root cause and the failing changeset from
// migration tool output. Every function is pure and never fails: anything
// that cannot be determined is reported as nil.
package diagnose

import (
	"regexp"
	"strings"
)

// CausedByMarker starts the root-cause section of the tool output.
const CausedByMarker = "Caused by:"

var changesetPattern = regexp.MustCompile(`Migration failed for changeset\s(.+?::.+?::.+?):`)

// Diagnosis is the result of scanning failed tool output.
type Diagnosis struct {
	// CausedBy is every line from the last "Caused by:" marker to the end of the output.
	CausedBy *string

	// FailedChangeset is the path::id::author identifier of the failing changeset.
	FailedChangeset *string
}

// Diagnose scans output for the root-cause fragment and the failing changeset.
// The two extractions are independent.
func Diagnose(output string) Diagnosis {
	return Diagnosis{
		CausedBy:        CausedBy(output),
		FailedChangeset: FailedChangeset(output),
	}
}

// CausedBy returns the lines from the last occurrence of the marker to the
// end of output, or nil when the marker does not appear.
func CausedBy(output string) *string {
	lines := strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.Contains(lines[i], CausedByMarker) {
			fragment := strings.TrimRight(strings.Join(lines[i:], "\n"), "\n")
			return &fragment
		}
	}
	return nil
}

// FailedChangeset returns the changeset identifier from the first
// "Migration failed for changeset <path>::<id>::<author>:" line, or nil.
func FailedChangeset(output string) *string {
	m := changesetPattern.FindStringSubmatch(output)
	if m == nil {
		return nil
	}
	id := m[1]
	return &id
}

// Or returns *s, or fallback when s is nil.
func Or(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
