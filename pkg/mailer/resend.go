package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/resend/resend-go/v2"
)

const defaultTimeout = 30 * time.Second

// ResendMailer delivers messages through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
	logger *slog.Logger
}

// ResendOption customizes a ResendMailer.
type ResendOption func(*ResendMailer)

// WithEndpoint points the client at another API base URL. An unparsable URL is
// logged and ignored.
func WithEndpoint(endpoint string) ResendOption {
	return func(m *ResendMailer) {
		base, err := url.Parse(endpoint)
		if err != nil {
			m.logger.Warn("Ignoring invalid Resend endpoint", "endpoint", endpoint, "error", err)

			return
		}

		m.client.BaseURL = base
	}
}

func NewResendMailer(apiKey, from string, logger *slog.Logger, opts ...ResendOption) *ResendMailer {
	if from == "" {
		from = DefaultFrom
	}

	m := &ResendMailer{
		client: resend.NewCustomClient(&http.Client{Timeout: defaultTimeout}, apiKey),
		from:   from,
		logger: logger.With("module", "resend_mailer"),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	sent, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	})
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}

	m.logger.InfoContext(ctx, "Email sent", "to", msg.To, "subject", msg.Subject, "message_id", sent.Id)

	return nil
}
