package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/theme"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/TwistedArtistsGuild/tag-web/internal/presentation/http/middleware"
)

const themeCookieTTL = 365 * 24 * 60 * 60

// ThemeRequest is the body of POST /api/theme.
type ThemeRequest struct {
	Theme string `json:"theme" binding:"required"`
}

// ThemeHandlers records the visitor's theme choice.
type ThemeHandlers struct {
	themes []string
	secure bool
	logger *logging.ChanneledLogger
}

// NewThemeHandlers creates theme handlers offering themes.
func NewThemeHandlers(themes []string, secure bool, logger *logging.ChanneledLogger) *ThemeHandlers {
	return &ThemeHandlers{themes: themes, secure: secure, logger: logger}
}

// Select handles POST /api/theme. Unknown themes are rejected and leave the
// current theme in place.
func (h *ThemeHandlers) Select(c *gin.Context) {
	var req ThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "theme is required")
		return
	}

	store := middleware.PageState(c)
	dropdown := theme.NewDropdown(h.themes, store.Snapshot().Theme)
	dropdown.Open()
	if err := dropdown.Select(req.Theme); err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	store.SetTheme(dropdown.Active())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.ThemeCookie, dropdown.Active(), themeCookieTTL, "/", "", h.secure, false)
	h.logger.Content().Debug("Theme selected", "theme", dropdown.Active())
	c.JSON(http.StatusOK, gin.H{"theme": dropdown.Active(), "open": dropdown.IsOpen()})
}
