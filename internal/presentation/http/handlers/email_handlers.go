package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TwistedArtistsGuild/tag-web/internal/application/services"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/email"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/performance"
)

// inboundMemory bounds the parsed multipart of an inbound webhook.
const inboundMemory = 10 << 20

// EmailHandlers sends member mail and accepts inbound routes.
type EmailHandlers struct {
	email       *services.EmailService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewEmailHandlers creates email handlers with injected dependencies
func NewEmailHandlers(emailService *services.EmailService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *EmailHandlers {
	return &EmailHandlers{email: emailService, logger: logger, perfTracker: perfTracker}
}

// PostSend handles POST /api/email/send.
func (h *EmailHandlers) PostSend(c *gin.Context) {
	start := time.Now()
	h.logger.Email().Debug("Received email send request", "method", c.Request.Method, "path", c.Request.URL.Path)
	marker := h.perfTracker.StartOperation("email_send_request", "email")
	defer marker.Complete()

	var in services.SendInput
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.email.Send(c.Request.Context(), in)
	if err != nil {
		marker.SetError(err)
		abortWithErr(c, err)
		return
	}

	h.logger.Email().Info("Email send request completed", "id", id, "duration", time.Since(start))
	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for PostSend request", "duration", marker.Duration, "success", true)
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// PostInbound handles POST /api/email/inbound, the Mailgun route webhook.
func (h *EmailHandlers) PostInbound(c *gin.Context) {
	start := time.Now()
	h.logger.Email().Debug("Received inbound email webhook", "method", c.Request.Method, "path", c.Request.URL.Path)
	marker := h.perfTracker.StartOperation("email_inbound_request", "email")
	defer marker.Complete()

	if err := c.Request.ParseMultipartForm(inboundMemory); err != nil && err != http.ErrNotMultipart {
		abortWithError(c, http.StatusBadRequest, "invalid form body")
		return
	}

	id, err := h.email.ForwardInbound(c.Request.Context(), email.ParseInbound(c.Request.PostForm))
	if err != nil {
		marker.SetError(err)
		abortWithErr(c, err)
		return
	}

	h.logger.Email().Info("Inbound email forwarded", "id", id, "duration", time.Since(start))
	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"id": id})
}
