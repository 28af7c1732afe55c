package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/user"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/performance"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/security"
	"github.com/TwistedArtistsGuild/tag-web/internal/presentation/http/middleware"
)

type fixedVisitors int

func (n fixedVisitors) Len() int { return int(n) }

type tokenSessions struct{}

func (tokenSessions) ParseSession(token string) (*user.SessionUser, error) {
	return security.ParseSessionToken(token, testSecret)
}

func systemEngine(t *testing.T) (*gin.Engine, *logging.ChanneledLogger) {
	t.Helper()
	logger := logging.NewDiscardLogger()
	perf := performance.NewTracker(performance.DefaultTrackerConfig(), logger.Perf())
	marker := perf.StartOperation("react_request", "artist")
	marker.SetSuccess(true)
	marker.Complete()

	h := NewSystemHandlers(fixedVisitors(3), logger, perf)
	r := gin.New()
	r.Use(middleware.Session(tokenSessions{}, newFakeVisitors(), false, logger))
	r.GET("/api/health", h.GetHealth)
	admin := r.Group("/api/system", middleware.RequireAPIAuth(), middleware.RequireRole(user.RoleAdmin))
	admin.GET("/log-levels", h.GetLogLevels)
	admin.PUT("/log-levels", h.SetLogLevel)
	admin.GET("/performance", h.GetPerformance)
	return r, logger
}

func roleCookie(t *testing.T, role string) *http.Cookie {
	t.Helper()
	token, err := security.IssueSessionToken(user.SessionUser{ID: "u-9", Email: "ops@example.com", Role: role}, testSecret, time.Hour)
	require.NoError(t, err)
	return &http.Cookie{Name: middleware.SessionCookie, Value: token}
}

func TestHealth(t *testing.T) {
	r, _ := systemEngine(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(3), body["visitors"])
}

func TestSystemRoutesRequireAdmin(t *testing.T) {
	r, _ := systemEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/system/performance", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/system/performance", nil)
	req.AddCookie(roleCookie(t, user.RoleMember))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/system/performance", nil)
	req.AddCookie(roleCookie(t, user.RoleAdmin))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"operation":"react_request"`)
}

func TestSetLogLevel(t *testing.T) {
	r, logger := systemEngine(t)

	req := httptest.NewRequest(http.MethodPut, "/api/system/log-levels", strings.NewReader(`{"channel":"reactions","level":"debug"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(roleCookie(t, user.RoleAdmin))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "DEBUG", logger.GetChannelLevels()["reactions"])

	req = httptest.NewRequest(http.MethodPut, "/api/system/log-levels", strings.NewReader(`{"channel":"nope","level":"debug"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(roleCookie(t, user.RoleAdmin))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodPut, "/api/system/log-levels", strings.NewReader(`{"channel":"reactions","level":"loud"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(roleCookie(t, user.RoleAdmin))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
