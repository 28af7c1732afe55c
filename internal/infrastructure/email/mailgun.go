package email

import (
	"context"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"
)

// MailgunMailer sends through the Mailgun messages API.
type MailgunMailer struct {
	mg *mailgun.MailgunImpl
}

// NewMailgunMailer creates a mailer for domain. eu selects the EU region.
func NewMailgunMailer(domain, apiKey string, eu bool) *MailgunMailer {
	mg := mailgun.NewMailgun(domain, apiKey)
	if eu {
		mg.SetAPIBase(mailgun.APIBaseEU)
	}
	return &MailgunMailer{mg: mg}
}

func (m *MailgunMailer) Name() string { return "mailgun" }

func (m *MailgunMailer) Send(ctx context.Context, msg Message) (string, error) {
	message := m.mg.NewMessage(msg.From, msg.Subject, msg.Text, msg.To...)
	if msg.HTML != "" {
		message.SetHtml(msg.HTML)
	}
	if msg.ReplyTo != "" {
		message.SetReplyTo(msg.ReplyTo)
	}

	_, id, err := m.mg.Send(ctx, message)
	if err != nil {
		return "", fmt.Errorf("failed to send email via Mailgun: %w", err)
	}
	return id, nil
}

// MailgunVerifier checks the HMAC signature Mailgun attaches to webhooks.
type MailgunVerifier struct {
	mg *mailgun.MailgunImpl
}

// NewMailgunVerifier creates a verifier for the webhook signing key. The
// client verifies with the key it was built with.
func NewMailgunVerifier(domain, signingKey string) *MailgunVerifier {
	return &MailgunVerifier{mg: mailgun.NewMailgun(domain, signingKey)}
}

// Verify reports whether the timestamp, token and signature match.
func (v *MailgunVerifier) Verify(timestamp, token, signature string) bool {
	ok, err := v.mg.VerifyWebhookSignature(mailgun.Signature{
		TimeStamp: timestamp,
		Token:     token,
		Signature: signature,
	})
	return err == nil && ok
}
