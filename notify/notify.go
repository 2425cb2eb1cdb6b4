// Package notify dispatches the single end-of-run deploy report.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	schemadeploy "github.com/getpup/schemadeploy"
	"github.com/getpup/schemadeploy/internal/redact"
)

// Notifier sends a deploy report. Callers log a returned error and carry on:
// a failed notification never changes the outcome of a run.
type Notifier interface {
	Notify(ctx context.Context, envelope schemadeploy.NotificationEnvelope) error
}

// Subject returns the report subject line.
func Subject(envelope schemadeploy.NotificationEnvelope) string {
	return fmt.Sprintf("[%s] Schema Deployment - Tag %s", envelope.Status, envelope.Version)
}

var bodyTemplate = template.Must(template.New("report").Parse(`<html>
<body>
<p><strong>Status:</strong> {{.Status}}</p>
<p><strong>Run ID:</strong> {{.RunID}}</p>
<p><strong>Database Host:</strong> {{.Host}}</p>
<p><strong>Schema Directories:</strong> {{.Directories}}</p>
<p><strong>Tag:</strong> {{.Version}}</p>
<p><strong>ChangeLog File:</strong> {{.ChangeLogFile}}</p>
<p><strong>Failed Changeset:</strong> {{.FailedChangeset}}</p>
<p><strong>Error Log:</strong><br><pre>{{.CausedBy}}</pre></p>
<p><strong>Traceback:</strong><br><pre>{{.Traceback}}</pre></p>
</body>
</html>
`))

// Body renders the HTML report. Free-text fields pass through r before rendering.
func Body(envelope schemadeploy.NotificationEnvelope, r *redact.Redactor) (string, error) {
	data := struct {
		schemadeploy.NotificationEnvelope
		Directories string
	}{
		NotificationEnvelope: envelope,
		Directories:          strings.Join(envelope.Directories, ", "),
	}
	data.CausedBy = r.Redact(envelope.CausedBy)
	data.Traceback = r.Redact(envelope.Traceback)

	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return buf.String(), nil
}
