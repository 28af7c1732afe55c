package email

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/email/templates"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageValidate(t *testing.T) {
	ok := Message{To: []string{"a@example.com"}, Subject: "Hi", Text: "hello"}
	assert.NoError(t, ok.Validate())

	cases := map[string]Message{
		"no recipients": {Subject: "Hi", Text: "x"},
		"bad recipient": {To: []string{"nope"}, Subject: "Hi", Text: "x"},
		"no subject":    {To: []string{"a@example.com"}, Text: "x"},
		"no body":       {To: []string{"a@example.com"}, Subject: "Hi"},
		"bad reply-to":  {To: []string{"a@example.com"}, Subject: "Hi", HTML: "<p>x</p>", ReplyTo: "??"},
	}
	for name, msg := range cases {
		assert.Error(t, msg.Validate(), name)
	}
}

func TestLogMailerCaptures(t *testing.T) {
	m := NewLogMailer(logging.NewDiscardLogger())
	id, err := m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "Hi", Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, "log-1", id)
	assert.Len(t, m.Sent(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Send(ctx, Message{})
	assert.Error(t, err)
}

type fakeVerifier struct{ ok bool }

func (f fakeVerifier) Verify(timestamp, token, signature string) bool { return f.ok }

func TestVerifyInbound(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	form := url.Values{
		"sender":     {"fan@example.com"},
		"from":       {"Fan <fan@example.com>"},
		"recipient":  {"hello@guild.example"},
		"subject":    {"Commission?"},
		"body-plain": {"Do you take commissions?"},
		"timestamp":  {strconv.FormatInt(now.Unix(), 10)},
		"token":      {"tok"},
		"signature":  {"sig"},
	}
	msg := ParseInbound(form)
	assert.Equal(t, "Fan <fan@example.com>", msg.ReplyAddress())
	assert.Equal(t, "Do you take commissions?", msg.Text)

	assert.NoError(t, VerifyInbound(nil, msg, now))
	assert.NoError(t, VerifyInbound(fakeVerifier{ok: true}, msg, now))
	assert.ErrorIs(t, VerifyInbound(fakeVerifier{ok: false}, msg, now), ErrBadSignature)
	assert.ErrorIs(t, VerifyInbound(fakeVerifier{ok: true}, msg, now.Add(time.Hour)), ErrBadSignature, "stale deliveries are rejected")

	msg.Signature = ""
	assert.ErrorIs(t, VerifyInbound(fakeVerifier{ok: true}, msg, now), ErrBadSignature)
}

func signInbound(key, timestamp, token string) string {
	h := hmac.New(sha256.New, []byte(key))
	h.Write([]byte(timestamp + token))
	return hex.EncodeToString(h.Sum(nil))
}

func TestMailgunVerifierAcceptsSignedPayload(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)
	verifier := NewMailgunVerifier("mg.guild.example", "signing-key")

	form := url.Values{
		"sender":     {"fan@example.com"},
		"recipient":  {"hello@guild.example"},
		"subject":    {"Commission?"},
		"body-plain": {"Hello"},
		"timestamp":  {ts},
		"token":      {"delivery-token"},
		"signature":  {signInbound("signing-key", ts, "delivery-token")},
	}
	msg := ParseInbound(form)
	assert.True(t, verifier.Verify(msg.Timestamp, msg.Token, msg.Signature))
	assert.NoError(t, VerifyInbound(verifier, msg, now))

	msg.Signature = signInbound("other-key", ts, "delivery-token")
	assert.ErrorIs(t, VerifyInbound(verifier, msg, now), ErrBadSignature)

	msg.Signature = "not-hex"
	assert.False(t, verifier.Verify(msg.Timestamp, msg.Token, msg.Signature))
}

func TestForwardedContentSanitizes(t *testing.T) {
	html := templates.GetForwardedEmailContent(templates.ForwardedEmailProps{
		From:    "Fan <fan@example.com>",
		Subject: "Hi",
		HTML:    `<p onclick="x()">Hello <script>alert(1)</script><a href="javascript:alert(1)">link</a></p>`,
	})
	assert.Contains(t, html, "Hello")
	assert.NotContains(t, html, "<script")
	assert.NotContains(t, html, "onclick")
	assert.NotContains(t, html, "javascript:")

	text := templates.GetForwardedEmailContent(templates.ForwardedEmailProps{From: "a@example.com", Text: "line one\n<b>line two</b>"})
	assert.Contains(t, text, "line one")
	assert.Contains(t, text, "&lt;b&gt;line two&lt;/b&gt;")
	assert.NotContains(t, text, "<b>")
}

func TestLayoutWrapsContent(t *testing.T) {
	body := templates.GetEmailLayout(templates.EmailLayoutProps{Content: templates.GetSignInEmailContent(templates.SignInEmailProps{
		SiteName:  "Twisted Artists Guild",
		SignInURL: "https://guild.example/api/auth/callback/email?token=abc&email=a%40example.com",
		ExpiresIn: "24 hours",
	})})
	assert.True(t, strings.HasPrefix(body, "<!doctype html>"))
	assert.Contains(t, body, "https://guild.example/api/auth/callback/email?token=abc&amp;email=a%40example.com")
	assert.Contains(t, body, "24 hours")
}

func TestButtonRejectsUnsafeURL(t *testing.T) {
	out := templates.GetButton(templates.ButtonProps{Text: "Go", URL: "javascript:alert(1)"})
	assert.NotContains(t, out, "javascript")
	assert.Contains(t, out, "Go")
}
