package notify

import (
	"context"

	schemadeploy "github.com/getpup/schemadeploy"
	"github.com/getpup/schemadeploy/internal/redact"
	"github.com/hashicorp/go-hclog"
)

// Log writes the report to a logger. It is used when no email recipients are configured.
type Log struct {
	logger   hclog.Logger
	redactor *redact.Redactor
}

// Compile-time check that Log implements Notifier.
var _ Notifier = (*Log)(nil)

// NewLog creates a Log notifier.
func NewLog(logger hclog.Logger, r *redact.Redactor) *Log {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Log{logger: logger, redactor: r}
}

// Notify logs the envelope at info level for success and error level otherwise.
func (l *Log) Notify(ctx context.Context, envelope schemadeploy.NotificationEnvelope) error {
	args := []interface{}{
		"run_id", envelope.RunID,
		"status", envelope.Status,
		"host", envelope.Host,
		"directories", envelope.Directories,
		"version", envelope.Version,
		"changelog_file", envelope.ChangeLogFile,
		"failed_changeset", envelope.FailedChangeset,
		"caused_by", l.redactor.Redact(envelope.CausedBy),
	}
	if envelope.Status == schemadeploy.StatusSuccess {
		l.logger.Info(Subject(envelope), args...)
		return nil
	}
	l.logger.Error(Subject(envelope), append(args, "traceback", l.redactor.Redact(envelope.Traceback))...)
	return nil
}
