// Package redact masks credentials in text that leaves the process:
// log lines, tracebacks, and notification bodies.
package redact

import (
	"regexp"
	"strings"
)

// Mask replaces every redacted value.
const Mask = "*********"

var passwordFlag = regexp.MustCompile(`--password=\S*`)

// Password masks the value of every --password= argument in s. The value ends
// at the next space or at the end of the string; text after it is unchanged.
func Password(s string) string {
	return passwordFlag.ReplaceAllString(s, "--password="+Mask)
}

// Redactor masks --password= arguments and any literal secret values.
type Redactor struct {
	replacer *strings.Replacer
}

// New returns a Redactor for the given secrets. Empty secrets are ignored.
func New(secrets ...string) *Redactor {
	var pairs []string
	for _, s := range secrets {
		if s == "" {
			continue
		}
		pairs = append(pairs, s, Mask)
	}
	r := &Redactor{}
	if len(pairs) > 0 {
		r.replacer = strings.NewReplacer(pairs...)
	}
	return r
}

// Redact masks credentials in s. A nil Redactor only masks --password= arguments.
func (r *Redactor) Redact(s string) string {
	s = Password(s)
	if r == nil || r.replacer == nil {
		return s
	}
	return r.replacer.Replace(s)
}
