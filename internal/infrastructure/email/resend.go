package email

import (
	"context"
	"fmt"

	"github.com/resendlabs/resend-go"
)

// ResendClient is the Mailer backed by the Resend API.
type ResendClient struct {
	client *resend.Client
}

// NewResendMailer creates a Resend-backed mailer.
func NewResendMailer(apiKey string) *ResendClient {
	return &ResendClient{client: resend.NewClient(apiKey)}
}

func (c *ResendClient) Name() string { return "resend" }

func (c *ResendClient) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	params := &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: msg.ReplyTo,
	}

	sent, err := c.client.Emails.Send(params)
	if err != nil {
		return "", fmt.Errorf("failed to send email via Resend: %w", err)
	}
	return sent.Id, nil
}
