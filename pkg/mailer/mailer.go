// Package mailer sends rendered emails.
package mailer

import (
	"context"
	"errors"
	"log/slog"
)

// DefaultFrom is the sender used when none is configured.
const DefaultFrom = "ClientFlow <noreply@getclientflow.app>"

// ErrNoRecipient is returned when a message has no recipient.
var ErrNoRecipient = errors.New("message has no recipient")

// Message is one rendered email.
type Message struct {
	To      string
	ReplyTo string
	Subject string
	HTML    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("module", "log_mailer")}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	m.logger.InfoContext(ctx, "Email not delivered, no provider configured",
		"to", msg.To,
		"subject", msg.Subject,
		"html_length", len(msg.HTML))

	return nil
}
