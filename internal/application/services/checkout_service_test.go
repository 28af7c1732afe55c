package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/user"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/payments"
)

// fakeProvider returns a fixed session and decodes webhooks from JSON,
// rejecting any signature other than "ok".
type fakeProvider struct {
	last payments.CheckoutRequest
	err  error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) CreateCheckoutSession(ctx context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &payments.CheckoutSession{ID: "cs_1", URL: "https://pay.test/cs_1"}, nil
}

func (f *fakeProvider) ParseWebhook(payload []byte, signature string) (*payments.WebhookEvent, error) {
	if signature != "ok" {
		return nil, payments.ErrBadSignature
	}
	var ev payments.WebhookEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func webhook(t *testing.T, ev payments.WebhookEvent) []byte {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	return data
}

func newCheckout(t *testing.T) (*CheckoutService, *fakeProvider, string) {
	t.Helper()
	users, _, subs := openRepos(t)
	u := &user.User{Email: "ada@example.com"}
	require.NoError(t, users.Create(context.Background(), u))
	provider := &fakeProvider{}
	return NewCheckoutService(provider, subs, "https://guild.test/", testLogger), provider, u.ID
}

func TestCreateSessionValidates(t *testing.T) {
	svc, _, _ := newCheckout(t)
	_, err := svc.CreateSession(context.Background(), nil, CheckoutInput{PriceID: "price_1"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "successUrl")
	assert.Contains(t, verr.Message, "cancelUrl")
}

func TestCheckoutLifecycle(t *testing.T) {
	svc, provider, userID := newCheckout(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, &user.SessionUser{ID: userID, Email: "ada@example.com"}, CheckoutInput{
		PriceID:    "price_1",
		SuccessURL: "/account?paid=1",
		CancelURL:  "https://guild.test/pricing",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.test/cs_1", session.URL)
	assert.Equal(t, "https://guild.test/account?paid=1", provider.last.SuccessURL)
	assert.Equal(t, "ada@example.com", provider.last.CustomerEmail)

	sub, err := svc.Subscription(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, sub)

	// The completed event carries neither user nor price; both come from
	// the recorded checkout.
	_, err = svc.HandleWebhook(ctx, webhook(t, payments.WebhookEvent{
		ID:      "evt_1",
		Type:    payments.EventCheckoutCompleted,
		Session: &payments.SessionData{ID: "cs_1", CustomerID: "cus_1", SubscriptionID: "sub_1"},
	}), "ok")
	require.NoError(t, err)

	sub, err = svc.Subscription(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, user.SubscriptionActive, sub.Status)
	assert.Equal(t, "price_1", sub.PriceID)

	end := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.HandleWebhook(ctx, webhook(t, payments.WebhookEvent{
		ID:           "evt_2",
		Type:         payments.EventSubscriptionUpdated,
		Subscription: &payments.SubscriptionData{ID: "sub_1", Status: user.SubscriptionPastDue, CurrentPeriodEnd: end},
	}), "ok")
	require.NoError(t, err)
	sub, err = svc.Subscription(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, user.SubscriptionPastDue, sub.Status)
	assert.True(t, end.Equal(sub.CurrentPeriodEnd))

	_, err = svc.HandleWebhook(ctx, webhook(t, payments.WebhookEvent{
		ID:           "evt_3",
		Type:         payments.EventSubscriptionDeleted,
		Subscription: &payments.SubscriptionData{ID: "sub_1", Status: "active"},
	}), "ok")
	require.NoError(t, err)
	sub, err = svc.Subscription(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, user.SubscriptionCanceled, sub.Status)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	svc, _, _ := newCheckout(t)
	_, err := svc.HandleWebhook(context.Background(), []byte(`{}`), "forged")
	assert.ErrorIs(t, err, payments.ErrBadSignature)
}

func TestWebhookIgnoresUnknownTypes(t *testing.T) {
	svc, _, _ := newCheckout(t)
	ev, err := svc.HandleWebhook(context.Background(), webhook(t, payments.WebhookEvent{ID: "evt_9", Type: "invoice.paid"}), "ok")
	require.NoError(t, err)
	assert.Equal(t, "invoice.paid", ev.Type)
}

func TestSubscriptionEventBeforeCheckout(t *testing.T) {
	svc, _, userID := newCheckout(t)
	ctx := context.Background()

	_, err := svc.HandleWebhook(ctx, webhook(t, payments.WebhookEvent{
		ID:           "evt_1",
		Type:         payments.EventSubscriptionUpdated,
		Subscription: &payments.SubscriptionData{ID: "sub_9", Status: "active", UserID: userID, PriceID: "price_2"},
	}), "ok")
	require.NoError(t, err)

	sub, err := svc.Subscription(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "sub_9", sub.ID)

	_, err = svc.HandleWebhook(ctx, webhook(t, payments.WebhookEvent{
		ID:           "evt_2",
		Type:         payments.EventSubscriptionUpdated,
		Subscription: &payments.SubscriptionData{ID: "sub_unknown", Status: "active"},
	}), "ok")
	assert.NoError(t, err, "orphan events are acknowledged")
}
