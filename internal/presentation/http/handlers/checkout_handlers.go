package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TwistedArtistsGuild/tag-web/internal/application/services"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/performance"
	"github.com/TwistedArtistsGuild/tag-web/internal/presentation/http/middleware"
)

// maxWebhookBytes bounds webhook bodies; Stripe events are far smaller.
const maxWebhookBytes = 1 << 20

// CheckoutHandlers starts checkouts and receives payment webhooks.
type CheckoutHandlers struct {
	checkout    *services.CheckoutService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewCheckoutHandlers creates checkout handlers with injected dependencies
func NewCheckoutHandlers(checkout *services.CheckoutService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *CheckoutHandlers {
	return &CheckoutHandlers{checkout: checkout, logger: logger, perfTracker: perfTracker}
}

// PostCheckout handles POST /api/checkout: {priceId, successUrl, cancelUrl}
// to {sessionId, url}.
func (h *CheckoutHandlers) PostCheckout(c *gin.Context) {
	start := time.Now()
	h.logger.Payments().Debug("Received checkout request", "method", c.Request.Method, "path", c.Request.URL.Path)
	marker := h.perfTracker.StartOperation("checkout_request", "payments")
	defer marker.Complete()

	var in services.CheckoutInput
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	u, _ := middleware.CurrentUser(c)

	session, err := h.checkout.CreateSession(c.Request.Context(), u, in)
	if err != nil {
		marker.SetError(err)
		abortWithErr(c, err)
		return
	}

	h.logger.Payments().Info("Checkout request completed", "sessionId", session.ID, "duration", time.Since(start))
	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for PostCheckout request", "duration", marker.Duration, "success", true)
	c.JSON(http.StatusOK, session)
}

// PostWebhook handles POST /api/webhooks/stripe. A bad signature answers
// 400; everything else verified is acknowledged.
func (h *CheckoutHandlers) PostWebhook(c *gin.Context) {
	start := time.Now()
	h.logger.Payments().Debug("Received payment webhook", "method", c.Request.Method, "path", c.Request.URL.Path)
	marker := h.perfTracker.StartOperation("payment_webhook_request", "payments")
	defer marker.Complete()

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "failed to read request body")
		return
	}

	event, err := h.checkout.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		marker.SetError(err)
		h.logger.Payments().Warn("Payment webhook rejected", "error", err.Error(), "duration", time.Since(start))
		abortWithErr(c, err)
		return
	}

	h.logger.Payments().Info("Payment webhook completed", "eventId", event.ID, "type", event.Type, "duration", time.Since(start))
	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"received": true})
}
