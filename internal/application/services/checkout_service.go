package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/user"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/payments"
)

// ValidationError is a client mistake reported as 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// CheckoutInput is the body of a checkout request.
type CheckoutInput struct {
	PriceID    string `json:"priceId"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

// CheckoutService starts hosted checkouts and applies the provider's
// webhooks to stored subscriptions.
type CheckoutService struct {
	provider payments.Provider
	repo     user.SubscriptionRepository
	baseURL  string
	logger   *logging.ChanneledLogger
}

// NewCheckoutService creates the checkout service. Relative success and
// cancel URLs are resolved against baseURL.
func NewCheckoutService(provider payments.Provider, repo user.SubscriptionRepository, baseURL string, logger *logging.ChanneledLogger) *CheckoutService {
	return &CheckoutService{
		provider: provider,
		repo:     repo,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
	}
}

func (s *CheckoutService) absolute(raw string) string {
	if strings.HasPrefix(raw, "/") {
		return s.baseURL + raw
	}
	return raw
}

// CreateSession starts a checkout for u and records it as open.
func (s *CheckoutService) CreateSession(ctx context.Context, u *user.SessionUser, in CheckoutInput) (*payments.CheckoutSession, error) {
	var missing []string
	if strings.TrimSpace(in.PriceID) == "" {
		missing = append(missing, "priceId")
	}
	if strings.TrimSpace(in.SuccessURL) == "" {
		missing = append(missing, "successUrl")
	}
	if strings.TrimSpace(in.CancelURL) == "" {
		missing = append(missing, "cancelUrl")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Message: "missing required fields: " + strings.Join(missing, ", ")}
	}

	req := payments.CheckoutRequest{
		PriceID:    in.PriceID,
		SuccessURL: s.absolute(in.SuccessURL),
		CancelURL:  s.absolute(in.CancelURL),
	}
	if u != nil {
		req.UserID = u.ID
		req.CustomerEmail = u.Email
	}

	start := time.Now()
	session, err := s.provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		s.logger.Payments().Error("Checkout session creation failed", "provider", s.provider.Name(), "priceId", in.PriceID, "error", err.Error())
		return nil, err
	}

	if err := s.repo.RecordCheckout(ctx, &user.Checkout{
		SessionID: session.ID,
		UserID:    req.UserID,
		PriceID:   in.PriceID,
		Status:    user.CheckoutOpen,
	}); err != nil {
		s.logger.Payments().Warn("Checkout created but not recorded", "sessionId", session.ID, "error", err.Error())
	}

	s.logger.Payments().Info("Checkout session created",
		"provider", s.provider.Name(), "sessionId", session.ID, "userId", logging.MaskID(req.UserID), "duration", time.Since(start))
	return session, nil
}

// HandleWebhook verifies and applies one provider event. Unknown event
// types are acknowledged without effect.
func (s *CheckoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*payments.WebhookEvent, error) {
	ev, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		s.logger.Payments().Warn("Webhook rejected", "provider", s.provider.Name(), "error", err.Error())
		return nil, err
	}

	switch ev.Type {
	case payments.EventCheckoutCompleted:
		err = s.checkoutCompleted(ctx, ev)
	case payments.EventCheckoutExpired:
		err = s.checkoutExpired(ctx, ev)
	case payments.EventSubscriptionUpdated:
		err = s.subscriptionChanged(ctx, ev, "")
	case payments.EventSubscriptionDeleted:
		err = s.subscriptionChanged(ctx, ev, user.SubscriptionCanceled)
	default:
		s.logger.Payments().Debug("Webhook event ignored", "eventId", ev.ID, "type", ev.Type)
		return ev, nil
	}
	if err != nil {
		s.logger.Payments().Error("Webhook event failed", "eventId", ev.ID, "type", ev.Type, "error", err.Error())
		return ev, err
	}
	s.logger.Payments().Info("Webhook event applied", "eventId", ev.ID, "type", ev.Type)
	return ev, nil
}

func (s *CheckoutService) checkoutCompleted(ctx context.Context, ev *payments.WebhookEvent) error {
	cs := ev.Session
	if cs == nil {
		return fmt.Errorf("%s without a session", ev.Type)
	}

	userID, priceID := cs.UserID, cs.PriceID
	if recorded, err := s.repo.FindCheckout(ctx, cs.ID); err == nil {
		if userID == "" {
			userID = recorded.UserID
		}
		if priceID == "" {
			priceID = recorded.PriceID
		}
	} else if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	if err := s.repo.RecordCheckout(ctx, &user.Checkout{
		SessionID: cs.ID,
		UserID:    userID,
		PriceID:   priceID,
		Status:    user.CheckoutCompleted,
	}); err != nil {
		return err
	}

	if cs.SubscriptionID == "" {
		return nil
	}
	return s.repo.Upsert(ctx, &user.Subscription{
		ID:         cs.SubscriptionID,
		UserID:     userID,
		CustomerID: cs.CustomerID,
		PriceID:    priceID,
		Status:     user.SubscriptionActive,
	})
}

func (s *CheckoutService) checkoutExpired(ctx context.Context, ev *payments.WebhookEvent) error {
	if ev.Session == nil {
		return fmt.Errorf("%s without a session", ev.Type)
	}
	return s.repo.SetCheckoutStatus(ctx, ev.Session.ID, user.CheckoutExpired)
}

// subscriptionChanged applies an update; status overrides the event's
// status when set.
func (s *CheckoutService) subscriptionChanged(ctx context.Context, ev *payments.WebhookEvent, status string) error {
	sub := ev.Subscription
	if sub == nil {
		return fmt.Errorf("%s without a subscription", ev.Type)
	}
	if status == "" {
		status = sub.Status
	}

	err := s.repo.UpdateStatus(ctx, sub.ID, status, sub.CurrentPeriodEnd)
	if !errors.Is(err, user.ErrNotFound) {
		return err
	}
	// Subscription events can arrive before checkout.session.completed.
	if sub.UserID == "" {
		s.logger.Payments().Warn("Subscription event for unknown subscription", "subscriptionId", sub.ID)
		return nil
	}
	return s.repo.Upsert(ctx, &user.Subscription{
		ID:               sub.ID,
		UserID:           sub.UserID,
		CustomerID:       sub.CustomerID,
		PriceID:          sub.PriceID,
		Status:           status,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	})
}

// Subscription returns u's subscription, or nil when there is none.
func (s *CheckoutService) Subscription(ctx context.Context, userID string) (*user.Subscription, error) {
	sub, err := s.repo.FindByUserID(ctx, userID)
	if errors.Is(err, user.ErrNotFound) {
		return nil, nil
	}
	return sub, err
}
