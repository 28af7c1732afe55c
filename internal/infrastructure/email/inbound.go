package email

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrBadSignature is returned for inbound webhooks that fail verification.
var ErrBadSignature = errors.New("inbound webhook signature is invalid")

// Verifier checks inbound webhook signatures.
type Verifier interface {
	Verify(timestamp, token, signature string) bool
}

// InboundMessage is a reply received through the Mailgun route webhook.
type InboundMessage struct {
	Sender    string
	From      string
	Recipient string
	Subject   string
	Text      string
	HTML      string
	Timestamp string
	Token     string
	Signature string
}

// ParseInbound reads the form fields Mailgun posts for a routed message.
func ParseInbound(form url.Values) InboundMessage {
	first := func(keys ...string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(form.Get(k)); v != "" {
				return v
			}
		}
		return ""
	}
	return InboundMessage{
		Sender:    first("sender"),
		From:      first("from", "From", "sender"),
		Recipient: first("recipient"),
		Subject:   first("subject", "Subject"),
		Text:      first("body-plain", "stripped-text"),
		HTML:      first("body-html", "stripped-html"),
		Timestamp: first("timestamp"),
		Token:     first("token"),
		Signature: first("signature"),
	}
}

// maxWebhookAge bounds replayed webhook deliveries.
const maxWebhookAge = 15 * time.Minute

// VerifyInbound checks the signature and freshness of msg. A nil verifier
// accepts everything.
func VerifyInbound(v Verifier, msg InboundMessage, now time.Time) error {
	if v == nil {
		return nil
	}
	if msg.Timestamp == "" || msg.Token == "" || msg.Signature == "" {
		return ErrBadSignature
	}
	ts, err := strconv.ParseInt(msg.Timestamp, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > maxWebhookAge || age < -maxWebhookAge {
		return ErrBadSignature
	}
	if !v.Verify(msg.Timestamp, msg.Token, msg.Signature) {
		return ErrBadSignature
	}
	return nil
}

// ReplyAddress is the address replies to a forwarded message should reach.
func (m InboundMessage) ReplyAddress() string {
	if m.From != "" {
		return m.From
	}
	return m.Sender
}
