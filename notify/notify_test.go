package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	schemadeploy "github.com/getpup/schemadeploy"
	"github.com/getpup/schemadeploy/internal/redact"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failedEnvelope() schemadeploy.NotificationEnvelope {
	causedBy := "Caused by: ERROR: value <too long> for column"
	changeset := "schemas/core/002_orders.sql::7::bob"
	return schemadeploy.NewFailureEnvelope(
		"run-1", "db.internal", []string{"schemas/core", "schemas/audit"}, "v1.4.0",
		"schemas/core/002_orders.sql",
		schemadeploy.FailureReport{
			CausedBy:        &causedBy,
			FailedChangeset: &changeset,
			Traceback:       "command 'java --password=hunter2 update' returned non-zero exit status 1",
		},
	)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "[FAILED] Schema Deployment - Tag v1.4.0", Subject(failedEnvelope()))
}

func TestBody_RendersFields(t *testing.T) {
	body, err := Body(failedEnvelope(), redact.New("hunter2"))

	require.NoError(t, err)
	assert.Contains(t, body, "<strong>Status:</strong> FAILED")
	assert.Contains(t, body, "schemas/core, schemas/audit")
	assert.Contains(t, body, "schemas/core/002_orders.sql::7::bob")
	assert.Contains(t, body, "value &lt;too long&gt; for column", "free text must be HTML escaped")
	assert.NotContains(t, body, "hunter2")
	assert.Contains(t, body, "--password="+redact.Mask)
}

func TestBody_SuccessUsesNone(t *testing.T) {
	env := schemadeploy.NewSuccessEnvelope("run-2", "db.internal", []string{"a"}, "v1.0.0")

	body, err := Body(env, nil)

	require.NoError(t, err)
	assert.Contains(t, body, "<strong>ChangeLog File:</strong> None")
	assert.Contains(t, body, "<strong>Failed Changeset:</strong> None")
}

func TestSMTP_Message(t *testing.T) {
	n := NewSMTP(SMTPConfig{
		Host:       "smtp.example.com",
		User:       "deploy@example.com",
		Recipients: []string{"dba@example.com", "oncall@example.com"},
	})

	msg, err := n.Message(failedEnvelope())

	require.NoError(t, err)
	assert.Equal(t, 587, n.config.Port)
	recipients, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"dba@example.com", "oncall@example.com"}, recipients)
}

func TestSMTP_MessageRequiresRecipients(t *testing.T) {
	n := NewSMTP(SMTPConfig{Host: "smtp.example.com", User: "deploy@example.com"})

	_, err := n.Message(failedEnvelope())

	assert.Error(t, err)
}

func TestSMTP_MessageRejectsBadSender(t *testing.T) {
	n := NewSMTP(SMTPConfig{Host: "smtp.example.com", User: "not an address", Recipients: []string{"dba@example.com"}})

	_, err := n.Message(failedEnvelope())

	assert.Error(t, err)
}

func TestLog_RedactsTraceback(t *testing.T) {
	var buf bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Output: &buf, Level: hclog.Info})

	err := NewLog(logger, redact.New("hunter2")).Notify(context.Background(), failedEnvelope())

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "[FAILED] Schema Deployment - Tag v1.4.0")
	assert.NotContains(t, buf.String(), "hunter2")
}

func TestMockNotifier_Records(t *testing.T) {
	m := NewMockNotifier()
	m.NotifyFunc = func(ctx context.Context, envelope schemadeploy.NotificationEnvelope) error {
		return errors.New("smtp: 535 authentication failed")
	}

	err := m.Notify(context.Background(), failedEnvelope())

	assert.Error(t, err)
	assert.Len(t, m.Sent(), 1)
}
