package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TwistedArtistsGuild/tag-web/internal/application/services"
	"github.com/TwistedArtistsGuild/tag-web/internal/domain/entities/catalog"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/api"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/messaging"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/performance"
)

// ReactionFailure is the 502 body of a rolled-back reaction: the uniform
// error plus the count the client should show again.
type ReactionFailure struct {
	Error ErrorMessage `json:"error"`
	Count int64        `json:"count"`
	State string       `json:"state"`
	OK    bool         `json:"ok"`
}

// ReactionHandlers serves the love/like/follow buttons and their live feed.
type ReactionHandlers struct {
	reactions   *services.ReactionService
	hub         *messaging.ReactionHub
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewReactionHandlers creates reaction handlers with injected dependencies
func NewReactionHandlers(reactions *services.ReactionService, hub *messaging.ReactionHub, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *ReactionHandlers {
	return &ReactionHandlers{
		reactions:   reactions,
		hub:         hub,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// React handles POST /api/reactions/:kind/:id/:reaction.
func (h *ReactionHandlers) React(c *gin.Context) {
	start := time.Now()
	h.logger.Reactions().Debug("Received reaction request", "method", c.Request.Method, "path", c.Request.URL.Path)
	marker := h.perfTracker.StartOperation("react_request", c.Param("kind"))
	defer marker.Complete()

	kind, err := catalog.ParseKind(c.Param("kind"))
	if err != nil {
		abortWithError(c, http.StatusNotFound, err.Error())
		return
	}
	reaction, err := catalog.ParseReaction(kind, c.Param("reaction"))
	if err != nil {
		abortWithError(c, http.StatusNotFound, err.Error())
		return
	}
	id := c.Param("id")
	marker.AddMetadata("reaction", string(reaction))

	result, err := h.reactions.React(c.Request.Context(), kind, id, reaction)
	if err != nil {
		marker.SetError(err)
		abortWithErr(c, err)
		return
	}
	if !result.OK {
		marker.SetError(result.Err)
		c.JSON(http.StatusBadGateway, ReactionFailure{
			Error: ErrorMessage{Message: api.UserMessage(result.Err)},
			Count: result.Count,
			State: result.State,
		})
		return
	}

	h.logger.Reactions().Info("Reaction request completed", "kind", kind, "id", id, "reaction", reaction, "count", result.Count, "duration", time.Since(start))
	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for React request", "duration", marker.Duration, "kind", kind, "success", true)
	c.JSON(http.StatusOK, result)
}

// Feed upgrades GET /ws/reactions to the live counter feed.
func (h *ReactionHandlers) Feed(c *gin.Context) {
	h.logger.Reactions().Debug("Received reaction feed request", "remote", c.ClientIP(), "clients", h.hub.ClientCount())
	h.hub.ServeWS(c.Writer, c.Request)
}
