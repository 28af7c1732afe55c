package middleware

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/pagestate"
	"github.com/TwistedArtistsGuild/tag-web/internal/domain/user"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
)

// Cookie names.
const (
	SessionCookie    = "tag_session"
	VisitorCookie    = "tag_vid"
	ThemeCookie      = "tag_theme"
	OAuthStateCookie = "tag_oauth_state"
)

const (
	userKey      = "sessionUser"
	pageStateKey = "pageState"
	visitorTTL   = 365 * 24 * time.Hour
)

// SessionParser decodes session cookies.
type SessionParser interface {
	ParseSession(token string) (*user.SessionUser, error)
}

// VisitorStates hands out per-visitor page state stores.
type VisitorStates interface {
	NewVisitorID() string
	Get(visitorID string) *pagestate.Store
}

// Session decodes the session cookie, attaches the visitor's page state
// store and mirrors the signed-in user into it. An invalid or expired
// session cookie is cleared; the request continues signed out.
func Session(sessions SessionParser, visitors VisitorStates, secure bool, logger *logging.ChanneledLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var current *user.SessionUser
		if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
			u, err := sessions.ParseSession(token)
			if err != nil {
				logger.Auth().Debug("Session cookie rejected", "error", err.Error())
				ClearCookie(c, SessionCookie, secure)
			} else {
				current = u
				c.Set(userKey, u)
			}
		}

		vid, err := c.Cookie(VisitorCookie)
		if err != nil || vid == "" || len(vid) > 64 {
			vid = visitors.NewVisitorID()
			SetCookie(c, VisitorCookie, vid, visitorTTL, secure)
		}
		store := visitors.Get(vid)

		snap := store.Snapshot()
		switch {
		case current == nil && snap.User != nil:
			store.SetUser(nil)
		case current != nil && (snap.User == nil || *snap.User != mirror(current)):
			m := mirror(current)
			store.SetUser(&m)
		}
		if theme, err := c.Cookie(ThemeCookie); err == nil && theme != "" && theme != snap.Theme {
			store.SetTheme(theme)
		}

		c.Set(pageStateKey, store)
		c.Next()
	}
}

func mirror(u *user.SessionUser) pagestate.User {
	return pagestate.User{ID: u.ID, Name: u.DisplayName(), Email: u.Email, Image: u.Image, Role: u.Role}
}

// CurrentUser returns the signed-in user, if any.
func CurrentUser(c *gin.Context) (*user.SessionUser, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*user.SessionUser)
	return u, ok && u != nil
}

// PageState returns the visitor's page state store. Routes outside the
// Session middleware get a throwaway store.
func PageState(c *gin.Context) *pagestate.Store {
	if v, ok := c.Get(pageStateKey); ok {
		if s, ok := v.(*pagestate.Store); ok {
			return s
		}
	}
	return pagestate.NewStore("")
}

// RequireAPIAuth answers 401 with no body when nobody is signed in.
func RequireAPIAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

// RequireRole answers 403 unless the signed-in user has role. Use after
// RequireAPIAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if u, ok := CurrentUser(c); !ok || u.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": gin.H{"message": "forbidden"}})
			return
		}
		c.Next()
	}
}

// RequirePageAuth redirects anonymous visitors to the sign-in page, coming
// back to the requested URL afterwards.
func RequirePageAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			c.Redirect(http.StatusFound, "/api/auth/signin?callbackUrl="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// SetCookie writes an HttpOnly, SameSite=Lax cookie for the whole site.
func SetCookie(c *gin.Context, name, value string, ttl time.Duration, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, int(ttl.Seconds()), "/", "", secure, true)
}

// ClearCookie expires a cookie set by SetCookie.
func ClearCookie(c *gin.Context, name string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", secure, true)
}
