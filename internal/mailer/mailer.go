// Package mailer delivers report emails through MailerSend's REST API or a
// plain SMTP relay.
package mailer

import (
	"context"
	"fmt"
	"strings"
)

const (
	ProviderMailerSend = "mailersend"
	ProviderSMTP       = "smtp"
)

// Attachment is a file sent along with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a multipart email. From and To fall back to the sender's
// configured addresses when empty.
type Message struct {
	From        string
	To          []string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// Result is the provider's answer to a delivery, passed back to API callers
// as-is.
type Result map[string]interface{}

type Sender interface {
	Send(ctx context.Context, msg *Message) (Result, error)
}

// Config holds the settings for every provider. Only the fields of the
// selected provider are required.
type Config struct {
	Provider     string
	APIKey       string
	From         string
	To           string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
}

// MissingConfigError names the environment variable that must be set.
type MissingConfigError struct {
	Name string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("missing configuration: %s", e.Name)
}

// New returns the sender for cfg.Provider.
func New(cfg Config) (Sender, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderMailerSend
	}

	switch provider {
	case ProviderMailerSend:
		if err := require(
			"API_KEY_MAILERSEND", cfg.APIKey,
			"FROM_EMAIL", cfg.From,
			"TO_EMAIL", cfg.To,
		); err != nil {
			return nil, err
		}
		return NewMailerSendSender(cfg.APIKey, cfg.From, Recipients(cfg.To)), nil
	case ProviderSMTP:
		return NewSMTPSenderFromConfig(cfg)
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.Provider)
	}
}

// NewSMTPSenderFromConfig validates the SMTP settings in cfg and builds the
// sender regardless of cfg.Provider.
func NewSMTPSenderFromConfig(cfg Config) (*SMTPSender, error) {
	if err := require(
		"FROM_EMAIL", cfg.From,
		"TO_EMAIL", cfg.To,
		"SERVER_SMTP", cfg.SMTPHost,
		"USER_SMTP", cfg.SMTPUser,
		"PASS_SMTP", cfg.SMTPPassword,
	); err != nil {
		return nil, err
	}
	if cfg.SMTPPort <= 0 {
		return nil, &MissingConfigError{Name: "PORT_SMTP"}
	}
	return NewSMTPSender(SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.From,
		To:       Recipients(cfg.To),
	}), nil
}

// Recipients splits a comma separated address list.
func Recipients(list string) []string {
	var out []string
	for _, addr := range strings.Split(list, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// require takes name/value pairs and reports the first blank value.
func require(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return &MissingConfigError{Name: pairs[i]}
		}
	}
	return nil
}

func addresses(msg *Message, from string, to []string) (string, []string) {
	if msg.From != "" {
		from = msg.From
	}
	if len(msg.To) > 0 {
		to = msg.To
	}
	return from, to
}
