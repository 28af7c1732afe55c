// Package payments wraps the hosted checkout provider.
package payments

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrBadSignature is returned when a webhook fails verification.
	ErrBadSignature = errors.New("webhook signature verification failed")
	// ErrInvalidPayload is returned for webhook bodies that do not decode.
	ErrInvalidPayload = errors.New("invalid webhook payload")
	// ErrNotConfigured is returned when the provider has no secret key.
	ErrNotConfigured = errors.New("payment provider is not configured")
)

// Event types the webhook handles.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventCheckoutExpired     = "checkout.session.expired"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// CheckoutRequest starts a hosted subscription checkout.
type CheckoutRequest struct {
	PriceID       string
	SuccessURL    string
	CancelURL     string
	UserID        string
	CustomerEmail string
}

// CheckoutSession is the provider's answer.
type CheckoutSession struct {
	ID  string `json:"sessionId"`
	URL string `json:"url"`
}

// SessionData is the checkout session carried by checkout events.
type SessionData struct {
	ID             string
	UserID         string
	CustomerID     string
	SubscriptionID string
	PriceID        string
}

// SubscriptionData is the subscription carried by subscription events.
type SubscriptionData struct {
	ID               string
	CustomerID       string
	Status           string
	PriceID          string
	CurrentPeriodEnd time.Time
	UserID           string
}

// WebhookEvent is a verified, decoded provider event. Only the field matching
// Type is set; other event types carry neither.
type WebhookEvent struct {
	ID           string
	Type         string
	Session      *SessionData
	Subscription *SubscriptionData
}

// Provider creates checkout sessions and verifies webhooks.
type Provider interface {
	Name() string
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	// ParseWebhook verifies signature when a webhook secret is configured and
	// decodes the event.
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
