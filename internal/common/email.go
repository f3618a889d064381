package common

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Email is one outbound HTML message.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// EmailSender delivers customer mail.
type EmailSender interface {
	Send(ctx context.Context, msg Email) error
}

// InMemoryEmail records messages instead of sending them.
type InMemoryEmail struct {
	mu     sync.Mutex
	outbox []Email
}

func (m *InMemoryEmail) Send(_ context.Context, msg Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outbox = append(m.outbox, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (m *InMemoryEmail) Sent() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Email(nil), m.outbox...)
}

// LogEmailSender logs mail instead of relaying it. It is the default until
// an SMTP relay is configured.
type LogEmailSender struct {
	Logger zerolog.Logger
	From   string
}

func (l LogEmailSender) Send(ctx context.Context, msg Email) error {
	l.Logger.Info().
		Ctx(ctx).
		Str("from", l.From).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("body_bytes", len(msg.HTML)).
		Msg("email_outbound")
	return nil
}
