package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/email"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/email/templates"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
)

// ErrNoAdminInbox is returned when inbound mail arrives with no ADMIN_EMAIL.
var ErrNoAdminInbox = errors.New("no admin inbox is configured for forwarded mail")

// StringList decodes either a single string or an array of strings.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*l = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// SendInput is the body of the email send route.
type SendInput struct {
	To      StringList `json:"to"`
	Subject string     `json:"subject"`
	Text    string     `json:"text"`
	HTML    string     `json:"html"`
	ReplyTo string     `json:"replyTo"`
}

// EmailService sends member mail and forwards inbound replies to the admin
// inbox.
type EmailService struct {
	mailer     email.Mailer
	verifier   email.Verifier
	from       string
	adminEmail string
	siteURL    string
	logger     *logging.ChanneledLogger
	now        func() time.Time
}

// NewEmailService creates the email service. verifier may be nil, which
// accepts unsigned inbound webhooks.
func NewEmailService(mailer email.Mailer, verifier email.Verifier, from, adminEmail, siteURL string, logger *logging.ChanneledLogger) *EmailService {
	return &EmailService{
		mailer:     mailer,
		verifier:   verifier,
		from:       from,
		adminEmail: adminEmail,
		siteURL:    siteURL,
		logger:     logger,
		now:        time.Now,
	}
}

// Send validates and sends one message. HTML bodies are sanitized and
// wrapped in the site layout.
func (s *EmailService) Send(ctx context.Context, in SendInput) (string, error) {
	msg := email.Message{
		From:    s.from,
		To:      in.To,
		Subject: strings.TrimSpace(in.Subject),
		Text:    in.Text,
		ReplyTo: strings.TrimSpace(in.ReplyTo),
	}
	if strings.TrimSpace(in.HTML) != "" {
		msg.HTML = templates.GetEmailLayout(templates.EmailLayoutProps{
			Title:   msg.Subject,
			Content: templates.GetParagraphWithHTML(in.HTML),
			SiteURL: s.siteURL,
		})
	}
	if err := msg.Validate(); err != nil {
		return "", &ValidationError{Message: err.Error()}
	}

	start := time.Now()
	id, err := s.mailer.Send(ctx, msg)
	if err != nil {
		s.logger.Email().Error("Email send failed", "provider", s.mailer.Name(), "subject", msg.Subject, "error", err.Error())
		return "", err
	}
	s.logger.Email().Info("Email sent", "provider", s.mailer.Name(), "id", id, "recipients", len(msg.To), "duration", time.Since(start))
	return id, nil
}

// ForwardInbound verifies a routed message and forwards it to the admin
// inbox with Reply-To set to the original sender.
func (s *EmailService) ForwardInbound(ctx context.Context, in email.InboundMessage) (string, error) {
	if err := email.VerifyInbound(s.verifier, in, s.now()); err != nil {
		s.logger.Email().Warn("Inbound webhook rejected", "sender", in.Sender, "error", err.Error())
		return "", err
	}
	if s.adminEmail == "" {
		return "", ErrNoAdminInbox
	}

	subject := in.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	content := templates.GetForwardedEmailContent(templates.ForwardedEmailProps{
		From:      in.ReplyAddress(),
		Recipient: in.Recipient,
		Subject:   in.Subject,
		Text:      in.Text,
		HTML:      in.HTML,
	})
	msg := email.Message{
		From:    s.from,
		To:      []string{s.adminEmail},
		Subject: "Fwd: " + subject,
		Text:    "From: " + in.ReplyAddress() + "\nTo: " + in.Recipient + "\n\n" + in.Text,
		HTML: templates.GetEmailLayout(templates.EmailLayoutProps{
			Title:     "Fwd: " + subject,
			Preheader: "Message from " + in.ReplyAddress(),
			Content:   content,
			SiteURL:   s.siteURL,
		}),
		ReplyTo: in.ReplyAddress(),
	}
	if err := msg.Validate(); err != nil {
		// Unparseable sender: forward without Reply-To.
		msg.ReplyTo = ""
		if err := msg.Validate(); err != nil {
			return "", err
		}
	}

	id, err := s.mailer.Send(ctx, msg)
	if err != nil {
		s.logger.Email().Error("Inbound forward failed", "provider", s.mailer.Name(), "error", err.Error())
		return "", err
	}
	s.logger.Email().Info("Inbound message forwarded", "provider", s.mailer.Name(), "id", id, "recipient", in.Recipient)
	return id, nil
}
