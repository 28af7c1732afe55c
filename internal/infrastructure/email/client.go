// Package email sends transactional mail through Mailgun or Resend and
// verifies inbound Mailgun webhooks.
package email

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/TwistedArtistsGuild/tag-web/pkg/config"
)

// Message is one outgoing email. At least one of Text and HTML is set.
type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
	ReplyTo string
}

// Validate checks the fields every provider requires.
func (m Message) Validate() error {
	if len(m.To) == 0 {
		return errors.New("email has no recipients")
	}
	for _, to := range m.To {
		if _, err := mail.ParseAddress(to); err != nil {
			return fmt.Errorf("invalid recipient %q", to)
		}
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.New("email has no subject")
	}
	if strings.TrimSpace(m.Text) == "" && strings.TrimSpace(m.HTML) == "" {
		return errors.New("email has no body")
	}
	if m.ReplyTo != "" {
		if _, err := mail.ParseAddress(m.ReplyTo); err != nil {
			return fmt.Errorf("invalid reply-to %q", m.ReplyTo)
		}
	}
	return nil
}

// Mailer sends messages. Implementations return the provider's message id.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
	Name() string
}

// NewMailer selects the provider named by EMAIL_PROVIDER.
func NewMailer(logger *logging.ChanneledLogger) (Mailer, error) {
	switch strings.ToLower(config.EmailProvider) {
	case "mailgun":
		if missing := config.Missing(map[string]string{
			"MAILGUN_API_KEY": config.MailgunAPIKey,
			"MAILGUN_DOMAIN":  config.MailgunDomain,
		}); len(missing) > 0 {
			return nil, fmt.Errorf("mailgun provider needs %s", strings.Join(missing, ", "))
		}
		return NewMailgunMailer(config.MailgunDomain, config.MailgunAPIKey, config.MailgunEU), nil
	case "resend":
		if config.ResendAPIKey == "" {
			return nil, errors.New("resend provider needs RESEND_API_KEY")
		}
		return NewResendMailer(config.ResendAPIKey), nil
	case "", "log":
		return NewLogMailer(logger), nil
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", config.EmailProvider)
	}
}

// LogMailer writes messages to the email log channel instead of sending
// them. It keeps what it "sent" for inspection.
type LogMailer struct {
	logger *logging.ChanneledLogger
	mu     sync.Mutex
	sent   []Message
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *logging.ChanneledLogger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (l *LogMailer) Name() string { return "log" }

func (l *LogMailer) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.Lock()
	l.sent = append(l.sent, msg)
	id := fmt.Sprintf("log-%d", len(l.sent))
	l.mu.Unlock()

	l.logger.Email().Info("Email captured by log provider",
		"id", id, "to", strings.Join(msg.To, ","), "subject", msg.Subject, "replyTo", msg.ReplyTo)
	return id, nil
}

// Sent returns a copy of the captured messages.
func (l *LogMailer) Sent() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Message(nil), l.sent...)
}
