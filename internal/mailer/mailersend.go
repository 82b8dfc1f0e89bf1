package mailer

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/mailersend/mailersend-go"
)

const mailerSendTimeout = 30 * time.Second

// MailerSendSender delivers messages through the MailerSend email API.
type MailerSendSender struct {
	client *mailersend.Mailersend
	from   string
	to     []string
}

func NewMailerSendSender(apiKey, from string, to []string) *MailerSendSender {
	client := mailersend.NewMailersend(apiKey)
	client.SetClient(&http.Client{Timeout: mailerSendTimeout})

	return &MailerSendSender{
		client: client,
		from:   from,
		to:     to,
	}
}

// SetHTTPClient replaces the HTTP client used for API calls.
func (s *MailerSendSender) SetHTTPClient(c *http.Client) {
	s.client.SetClient(c)
}

func (s *MailerSendSender) Send(ctx context.Context, msg *Message) (Result, error) {
	from, to := addresses(msg, s.from, s.to)
	if from == "" {
		return nil, &MissingConfigError{Name: "FROM_EMAIL"}
	}
	if len(to) == 0 {
		return nil, &MissingConfigError{Name: "TO_EMAIL"}
	}

	message := s.client.Email.NewMessage()
	message.SetFrom(mailersend.From{Email: from})

	recipients := make([]mailersend.Recipient, 0, len(to))
	for _, addr := range to {
		recipients = append(recipients, mailersend.Recipient{Email: addr})
	}
	message.SetRecipients(recipients)
	message.SetSubject(msg.Subject)
	message.SetText(msg.Text)
	if msg.HTML != "" {
		message.SetHTML(msg.HTML)
	}
	for _, a := range msg.Attachments {
		message.AddAttachment(mailersend.Attachment{
			Filename: a.Filename,
			Content:  base64.StdEncoding.EncodeToString(a.Content),
		})
	}

	res, err := s.client.Email.Send(ctx, message)
	if err != nil {
		if res != nil && res.Response != nil {
			return nil, fmt.Errorf("mailersend returned status %d: %w", res.StatusCode, err)
		}
		return nil, fmt.Errorf("mailersend request failed: %w", err)
	}

	result := Result{"status": "sent", "http_status": res.StatusCode}
	if id := res.Header.Get("X-Message-Id"); id != "" {
		result["message_id"] = id
	}
	return result, nil
}
