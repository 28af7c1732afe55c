package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/performance"
)

// VisitorCounter reports how many visitor stores are live.
type VisitorCounter interface {
	Len() int
}

// LogLevelRequest is the body of PUT /api/system/log-levels.
type LogLevelRequest struct {
	Channel string `json:"channel" binding:"required"`
	Level   string `json:"level" binding:"required"`
}

// SystemHandlers serves health, log level and performance endpoints.
type SystemHandlers struct {
	visitors    VisitorCounter
	started     time.Time
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewSystemHandlers creates system handlers with injected dependencies
func NewSystemHandlers(visitors VisitorCounter, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *SystemHandlers {
	return &SystemHandlers{visitors: visitors, started: time.Now(), logger: logger, perfTracker: perfTracker}
}

// GetHealth handles GET /api/health.
func (h *SystemHandlers) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"uptime":   time.Since(h.started).Round(time.Second).String(),
		"visitors": h.visitors.Len(),
	})
}

// GetLogLevels handles GET /api/system/log-levels.
func (h *SystemHandlers) GetLogLevels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"levels": h.logger.GetChannelLevels()})
}

// SetLogLevel handles PUT /api/system/log-levels.
func (h *SystemHandlers) SetLogLevel(c *gin.Context) {
	var req LogLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "channel and level are required")
		return
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(req.Level))); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("invalid log level %q", req.Level))
		return
	}
	if err := h.logger.SetChannelLevel(logging.Channel(req.Channel), level); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.System().Info("Log level changed", "channel", req.Channel, "level", level.String())
	c.JSON(http.StatusOK, gin.H{"channel": req.Channel, "level": level.String()})
}

// GetPerformance handles GET /api/system/performance: recent operations
// grouped by name.
func (h *SystemHandlers) GetPerformance(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"operations": h.perfTracker.Summarize()})
}
