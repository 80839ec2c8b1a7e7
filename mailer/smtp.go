package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"portfolio/api/config"
)

type smtpServer struct {
	host string
	port int
}

var wellKnownServices = map[string]smtpServer{
	"gmail":   {host: "smtp.gmail.com", port: 587},
	"outlook": {host: "smtp-mail.outlook.com", port: 587},
	"hotmail": {host: "smtp-mail.outlook.com", port: 587},
	"yahoo":   {host: "smtp.mail.yahoo.com", port: 587},
	"zoho":    {host: "smtp.zoho.com", port: 587},
}

// SMTPMailer delivers through an authenticated SMTP relay. Each Send opens
// its own connection so concurrent sends do not contend for one session.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	timeout  time.Duration
}

func NewSMTPMailer(cfg config.EmailConfig) (*SMTPMailer, error) {
	host, port := cfg.Host, cfg.Port
	if host == "" {
		known, ok := wellKnownServices[cfg.Service]
		if !ok {
			return nil, fmt.Errorf("unknown EMAIL_SERVICE %q and no EMAIL_HOST set", cfg.Service)
		}
		host, port = known.host, known.port
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: cfg.Username,
		password: cfg.Password,
		from:     from,
		timeout:  15 * time.Second,
	}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	email, err := m.build(msg)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(m.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.username),
		mail.WithPassword(m.password),
		mail.WithTimeout(m.timeout),
	}
	if m.port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(m.host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, email); err != nil {
		return fmt.Errorf("send email to %s: %w", msg.To, err)
	}
	return nil
}

func (m *SMTPMailer) build(msg Message) (*mail.Msg, error) {
	email := mail.NewMsg()
	if err := email.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := email.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	if msg.ReplyTo != "" {
		if err := email.ReplyTo(msg.ReplyTo); err != nil {
			return nil, fmt.Errorf("invalid reply-to: %w", err)
		}
	}
	email.Subject(msg.Subject)
	email.SetDate()
	email.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		email.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	return email, nil
}
