package notify

import (
	"context"
	"errors"
	"fmt"

	schemadeploy "github.com/getpup/schemadeploy"
	"github.com/getpup/schemadeploy/internal/redact"
	"github.com/hashicorp/go-hclog"
	"github.com/wneessen/go-mail"
)

// SMTPConfig configures the SMTP notifier.
type SMTPConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	Recipients []string

	// Redactor masks credentials in the report body.
	Redactor *redact.Redactor

	// Logger is an optional logger for observability.
	Logger hclog.Logger
}

// SMTP sends the report as an HTML email over STARTTLS.
type SMTP struct {
	config SMTPConfig
}

// Compile-time check that SMTP implements Notifier.
var _ Notifier = (*SMTP)(nil)

// NewSMTP creates an SMTP notifier. It applies a default port of 587.
func NewSMTP(cfg SMTPConfig) *SMTP {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}
	return &SMTP{config: cfg}
}

// Message builds the email for envelope.
func (s *SMTP) Message(envelope schemadeploy.NotificationEnvelope) (*mail.Msg, error) {
	if len(s.config.Recipients) == 0 {
		return nil, errors.New("no recipients configured")
	}

	body, err := Body(envelope, s.config.Redactor)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(s.config.User); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(s.config.Recipients...); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(Subject(envelope))
	msg.SetBodyString(mail.TypeTextHTML, body)
	return msg, nil
}

// Notify sends the report. It does not retry.
func (s *SMTP) Notify(ctx context.Context, envelope schemadeploy.NotificationEnvelope) error {
	msg, err := s.Message(envelope)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.config.Host,
		mail.WithPort(s.config.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.config.User),
		mail.WithPassword(s.config.Password),
	)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	s.config.Logger.Info("email notification sent", "status", envelope.Status, "recipients", len(s.config.Recipients))
	return nil
}
