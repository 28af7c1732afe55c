package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TwistedArtistsGuild/tag-web/internal/application/services"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/performance"
	"github.com/TwistedArtistsGuild/tag-web/internal/presentation/http/middleware"
	"github.com/TwistedArtistsGuild/tag-web/internal/presentation/templates"
)

const oauthStateTTL = 10 * time.Minute

// EmailSignInRequest is the JSON body of POST /api/auth/signin/email.
type EmailSignInRequest struct {
	Email       string `json:"email" form:"email"`
	CallbackURL string `json:"callbackUrl" form:"callbackUrl"`
}

// AuthHandlers contains all authentication-related HTTP handlers
type AuthHandlers struct {
	authService *services.AuthService
	renderer    *Renderer
	secure      bool
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewAuthHandlers creates auth handlers with injected dependencies. secure
// marks cookies Secure.
func NewAuthHandlers(authService *services.AuthService, renderer *Renderer, secure bool, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		renderer:    renderer,
		secure:      secure,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Content-Type"), "application/json") ||
		strings.Contains(c.GetHeader("Accept"), "application/json")
}

func (h *AuthHandlers) renderSignIn(c *gin.Context, status int, props templates.SignInProps) {
	for _, p := range h.authService.Providers() {
		props.Providers = append(props.Providers, templates.SignInProvider{ID: p.ID, Name: p.Name, Type: p.Type, SignInURL: p.SignInURL})
	}
	h.renderer.Render(c, Page{
		Status: status,
		SEO:    templates.SEO{Title: "Sign in", NoIndex: true},
		Body:   templates.SignInPage(props),
	})
}

// GetProviders handles GET /api/auth/providers.
func (h *AuthHandlers) GetProviders(c *gin.Context) {
	h.logger.Auth().Debug("Received providers request", "method", c.Request.Method, "path", c.Request.URL.Path)
	c.JSON(http.StatusOK, gin.H{"providers": h.authService.Providers()})
}

// GetSignInPage handles GET /api/auth/signin.
func (h *AuthHandlers) GetSignInPage(c *gin.Context) {
	h.logger.Auth().Debug("Received sign-in page request", "method", c.Request.Method, "path", c.Request.URL.Path)
	h.renderSignIn(c, http.StatusOK, templates.SignInProps{
		CallbackURL: h.authService.SafeCallbackURL(c.Query("callbackUrl")),
	})
}

// GetSignIn handles GET /api/auth/signin/:provider by redirecting to the
// OAuth provider with a sealed state cookie.
func (h *AuthHandlers) GetSignIn(c *gin.Context) {
	provider := c.Param("provider")
	h.logger.Auth().Debug("Received sign-in request", "method", c.Request.Method, "path", c.Request.URL.Path, "provider", provider)
	marker := h.perfTracker.StartOperation("oauth_signin_request", provider)
	defer marker.Complete()

	if provider == services.ProviderEmail {
		c.Redirect(http.StatusFound, "/api/auth/signin?callbackUrl="+url.QueryEscape(c.Query("callbackUrl")))
		return
	}

	redirect, state, err := h.authService.BeginOAuth(provider, c.Query("callbackUrl"))
	if err != nil {
		marker.SetError(err)
		h.logger.Auth().Warn("Sign-in could not start", "provider", provider, "error", err.Error())
		h.renderSignIn(c, statusFor(err), templates.SignInProps{
			CallbackURL: h.authService.SafeCallbackURL(c.Query("callbackUrl")),
			Error:       "That sign-in option is not available.",
		})
		return
	}

	middleware.SetCookie(c, middleware.OAuthStateCookie, state, oauthStateTTL, h.secure)
	marker.SetSuccess(true)
	c.Redirect(http.StatusFound, redirect)
}

// GetCallback handles GET /api/auth/callback/:provider for OAuth codes and
// emailed links, then sets the session cookie and redirects.
func (h *AuthHandlers) GetCallback(c *gin.Context) {
	start := time.Now()
	provider := c.Param("provider")
	h.logger.Auth().Debug("Received sign-in callback", "method", c.Request.Method, "path", c.Request.URL.Path, "provider", provider)
	marker := h.perfTracker.StartOperation("signin_callback_request", provider)
	defer marker.Complete()

	ctx := c.Request.Context()
	var (
		result *services.SignInResult
		err    error
	)
	if provider == services.ProviderEmail {
		result, err = h.authService.CompleteEmailSignIn(ctx, c.Query("email"), c.Query("token"), c.Query("callbackUrl"))
	} else {
		stateCookie, _ := c.Cookie(middleware.OAuthStateCookie)
		middleware.ClearCookie(c, middleware.OAuthStateCookie, h.secure)
		if msg := c.Query("error"); msg != "" {
			h.logger.Auth().Warn("Provider returned an error", "provider", provider, "error", msg)
			err = services.ErrInvalidState
		} else {
			result, err = h.authService.CompleteOAuth(ctx, provider, c.Query("code"), c.Query("state"), stateCookie)
		}
	}
	if err != nil {
		marker.SetError(err)
		h.logger.Auth().Warn("Sign-in callback failed", "provider", provider, "error", err.Error(), "duration", time.Since(start))
		h.renderSignIn(c, statusFor(err), templates.SignInProps{
			CallbackURL: h.authService.SafeCallbackURL(c.Query("callbackUrl")),
			Error:       "Sign in failed. The link may have expired; please try again.",
		})
		return
	}

	middleware.SetCookie(c, middleware.SessionCookie, result.Token, h.authService.SessionTTL(), h.secure)
	h.logger.Auth().Info("Sign-in callback completed", "provider", provider, "userId", logging.MaskID(result.User.ID), "duration", time.Since(start))
	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for SignInCallback request", "duration", marker.Duration, "provider", provider, "success", true)
	c.Redirect(http.StatusFound, result.CallbackURL)
}

// PostEmailSignIn handles POST /api/auth/signin/email. JSON callers get
// {"ok":true}; form posts get the sign-in page with a notice.
func (h *AuthHandlers) PostEmailSignIn(c *gin.Context) {
	start := time.Now()
	h.logger.Auth().Debug("Received email sign-in request", "method", c.Request.Method, "path", c.Request.URL.Path)
	marker := h.perfTracker.StartOperation("email_signin_request", services.ProviderEmail)
	defer marker.Complete()

	var req EmailSignInRequest
	if err := c.ShouldBind(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	callback := h.authService.SafeCallbackURL(req.CallbackURL)

	if err := h.authService.RequestEmailSignIn(c.Request.Context(), req.Email, callback); err != nil {
		marker.SetError(err)
		h.logger.Auth().Warn("Email sign-in request failed", "error", err.Error(), "duration", time.Since(start))
		if wantsJSON(c) {
			abortWithErr(c, err)
			return
		}
		h.renderSignIn(c, statusFor(err), templates.SignInProps{CallbackURL: callback, Error: messageFor(err)})
		return
	}

	marker.SetSuccess(true)
	h.logger.Auth().Info("Email sign-in request completed", "duration", time.Since(start))
	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	h.renderSignIn(c, http.StatusOK, templates.SignInProps{CallbackURL: callback, EmailSent: true})
}

// PostSignOut handles POST /api/auth/signout.
func (h *AuthHandlers) PostSignOut(c *gin.Context) {
	h.logger.Auth().Debug("Received sign-out request", "method", c.Request.Method, "path", c.Request.URL.Path)
	userID := ""
	if u, ok := middleware.CurrentUser(c); ok {
		userID = u.ID
	}
	middleware.ClearCookie(c, middleware.SessionCookie, h.secure)
	middleware.PageState(c).SetUser(nil)
	h.logger.LogAuthOperation("signout", userID, true, nil)

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// GetSession handles GET /api/auth/session: {"user":{...}} or {}.
func (h *AuthHandlers) GetSession(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":    u,
		"expires": time.Now().Add(h.authService.SessionTTL()).UTC().Format(time.RFC3339),
	})
}
