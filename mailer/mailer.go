package mailer

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"portfolio/api/config"
)

// ErrDisabled is returned by the no-op mailer used when SMTP is not configured.
var ErrDisabled = errors.New("email delivery is disabled")

type Message struct {
	To      string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP mailer when credentials are configured and a
// disabled mailer otherwise.
func New(cfg config.EmailConfig, log *zap.Logger) (Mailer, error) {
	if !cfg.Enabled() {
		log.Warn("email credentials not configured, contact emails will not be sent")
		return Disabled{log: log}, nil
	}
	return NewSMTPMailer(cfg)
}

// Disabled drops every message.
type Disabled struct {
	log *zap.Logger
}

func (d Disabled) Send(ctx context.Context, msg Message) error {
	if d.log != nil {
		d.log.Info("email not sent, delivery disabled", zap.String("subject", msg.Subject))
	}
	return ErrDisabled
}
