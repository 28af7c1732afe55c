package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Stripe is the Provider backed by Stripe Checkout.
type Stripe struct {
	api           *client.API
	secretKey     string
	webhookSecret string
}

// NewStripe creates the adapter. An empty webhookSecret disables signature
// verification.
func NewStripe(secretKey, webhookSecret string, backends *stripe.Backends) *Stripe {
	sc := &client.API{}
	sc.Init(secretKey, backends)
	return &Stripe{api: sc, secretKey: secretKey, webhookSecret: webhookSecret}
}

func (s *Stripe) Name() string { return "stripe" }

// CreateCheckoutSession starts a subscription checkout for one price.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if s.secretKey == "" {
		return nil, ErrNotConfigured
	}
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if req.UserID != "" {
		params.ClientReferenceID = stripe.String(req.UserID)
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"userId": req.UserID},
		}
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx

	session, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// ParseWebhook verifies and decodes a Stripe event.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	var event stripe.Event
	if s.webhookSecret != "" {
		verified, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
		}
		event = verified
	} else if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil {
		return out, nil
	}

	switch out.Type {
	case EventCheckoutCompleted, EventCheckoutExpired:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("%w: checkout session in %s: %v", ErrInvalidPayload, out.Type, err)
		}
		out.Session = sessionData(&cs)
	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: subscription in %s: %v", ErrInvalidPayload, out.Type, err)
		}
		out.Subscription = subscriptionData(&sub)
	}
	return out, nil
}

func sessionData(cs *stripe.CheckoutSession) *SessionData {
	data := &SessionData{ID: cs.ID, UserID: cs.ClientReferenceID}
	if cs.Customer != nil {
		data.CustomerID = cs.Customer.ID
	}
	if cs.Subscription != nil {
		data.SubscriptionID = cs.Subscription.ID
	}
	if cs.LineItems != nil {
		for _, item := range cs.LineItems.Data {
			if item.Price != nil {
				data.PriceID = item.Price.ID
				break
			}
		}
	}
	return data
}

func subscriptionData(sub *stripe.Subscription) *SubscriptionData {
	data := &SubscriptionData{
		ID:     sub.ID,
		Status: string(sub.Status),
		UserID: sub.Metadata["userId"],
	}
	if sub.Customer != nil {
		data.CustomerID = sub.Customer.ID
	}
	if sub.CurrentPeriodEnd > 0 {
		data.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item.Price != nil {
				data.PriceID = item.Price.ID
				break
			}
		}
	}
	return data
}
