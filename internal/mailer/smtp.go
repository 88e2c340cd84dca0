// Package mailer delivers HTML email through an SMTP relay.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"vostcard-gateway/internal/config"
)

// ErrNotConfigured is returned when SMTP credentials are missing.
var ErrNotConfigured = errors.New("smtp credentials not configured")

// Message is a single outbound email.
type Message struct {
	To      []string
	ReplyTo string
	Subject string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTP sends through a gomail dialer. A successful return means the relay
// accepted the message, nothing more.
type SMTP struct {
	from       string
	configured bool
	dialer     dialer
}

// NewSMTP builds a sender from the email configuration. It never fails; an
// unconfigured sender reports ErrNotConfigured on every Send.
func NewSMTP(cfg config.EmailConfig) *SMTP {
	return &SMTP{
		from:       cfg.Sender(),
		configured: cfg.Configured(),
		dialer:     gomail.NewDialer(cfg.Host, cfg.Port, strings.TrimSpace(cfg.Username), cfg.Password),
	}
}

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if !s.configured {
		return ErrNotConfigured
	}
	if len(msg.To) == 0 {
		return errors.New("message has no recipients")
	}
	// gomail has no context support; at least skip work for abandoned requests.
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To...)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
