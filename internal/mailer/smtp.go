package mailer

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

const smtpTimeout = 30 * time.Second

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// SMTPSender relays messages through an SMTP server with PLAIN auth.
// STARTTLS is required on the submission port (587) and attempted elsewhere.
type SMTPSender struct {
	config SMTPConfig
}

func NewSMTPSender(config SMTPConfig) *SMTPSender {
	return &SMTPSender{config: config}
}

func (s *SMTPSender) Send(ctx context.Context, msg *Message) (Result, error) {
	m, err := s.buildMessage(msg)
	if err != nil {
		return nil, err
	}

	client, err := mail.NewClient(s.config.Host,
		mail.WithPort(s.config.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.config.Username),
		mail.WithPassword(s.config.Password),
		mail.WithTLSPolicy(s.tlsPolicy()),
		mail.WithTimeout(smtpTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return nil, fmt.Errorf("smtp delivery via %s:%d failed: %w", s.config.Host, s.config.Port, err)
	}

	return Result{"status": "sent"}, nil
}

func (s *SMTPSender) tlsPolicy() mail.TLSPolicy {
	if s.config.Port == 587 {
		return mail.TLSMandatory
	}
	return mail.TLSOpportunistic
}

func (s *SMTPSender) buildMessage(msg *Message) (*mail.Msg, error) {
	from, to := addresses(msg, s.config.From, s.config.To)
	if len(to) == 0 {
		return nil, &MissingConfigError{Name: "TO_EMAIL"}
	}

	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", from, err)
	}
	if err := m.To(to...); err != nil {
		return nil, fmt.Errorf("invalid recipient list %v: %w", to, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	for _, a := range msg.Attachments {
		var opts []mail.FileOption
		if a.ContentType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(a.ContentType)))
		}
		m.AttachReader(a.Filename, bytes.NewReader(a.Content), opts...)
	}

	return m, nil
}
