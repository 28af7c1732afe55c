package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/pagestate"
	"github.com/TwistedArtistsGuild/tag-web/internal/domain/user"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubSessions map[string]*user.SessionUser

func (s stubSessions) ParseSession(token string) (*user.SessionUser, error) {
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, errors.New("invalid session token")
}

type stubVisitors struct {
	stores map[string]*pagestate.Store
	issued int
}

func newStubVisitors() *stubVisitors {
	return &stubVisitors{stores: make(map[string]*pagestate.Store)}
}

func (v *stubVisitors) NewVisitorID() string {
	v.issued++
	return "visitor-" + string(rune('a'+v.issued-1))
}

func (v *stubVisitors) Get(id string) *pagestate.Store {
	s, ok := v.stores[id]
	if !ok {
		s = pagestate.NewStore("light")
		v.stores[id] = s
	}
	return s
}

func sessionEngine(visitors *stubVisitors, routes func(r *gin.Engine)) *gin.Engine {
	sessions := stubSessions{"good": {ID: "u-1", Name: "Ada", Email: "ada@example.com"}}
	r := gin.New()
	r.Use(Session(sessions, visitors, false, logging.NewDiscardLogger()))
	routes(r)
	return r
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSessionMirrorsUserIntoPageState(t *testing.T) {
	visitors := newStubVisitors()
	var seen pagestate.Snapshot
	r := sessionEngine(visitors, func(r *gin.Engine) {
		r.GET("/", func(c *gin.Context) {
			u, ok := CurrentUser(c)
			require.True(t, ok)
			assert.Equal(t, "u-1", u.ID)
			seen = PageState(c).Snapshot()
			c.Status(http.StatusNoContent)
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "good"})
	req.AddCookie(&http.Cookie{Name: VisitorCookie, Value: "known"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, seen.User)
	assert.Equal(t, "ada@example.com", seen.User.Email)
	assert.Nil(t, cookieNamed(w, VisitorCookie), "existing visitor keeps its cookie")
	assert.Zero(t, visitors.issued)
}

func TestSessionClearsInvalidCookie(t *testing.T) {
	visitors := newStubVisitors()
	signedIn := true
	r := sessionEngine(visitors, func(r *gin.Engine) {
		r.GET("/", func(c *gin.Context) {
			_, signedIn = CurrentUser(c)
			c.Status(http.StatusOK)
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "forged"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.False(t, signedIn)
	cleared := cookieNamed(w, SessionCookie)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)

	visitor := cookieNamed(w, VisitorCookie)
	require.NotNil(t, visitor)
	assert.Equal(t, "visitor-a", visitor.Value)
	assert.True(t, visitor.HttpOnly)
}

func TestSessionSignOutDropsMirroredUser(t *testing.T) {
	visitors := newStubVisitors()
	store := visitors.Get("known")
	store.SetUser(&pagestate.User{ID: "u-1"})

	r := sessionEngine(visitors, func(r *gin.Engine) {
		r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: VisitorCookie, Value: "known"})
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Nil(t, store.Snapshot().User)
}

func TestSessionAppliesThemeCookie(t *testing.T) {
	visitors := newStubVisitors()
	r := sessionEngine(visitors, func(r *gin.Engine) {
		r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, PageState(c).Snapshot().Theme) })
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: ThemeCookie, Value: "synthwave"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "synthwave", w.Body.String())
}

func TestRequireAPIAuth(t *testing.T) {
	r := sessionEngine(newStubVisitors(), func(r *gin.Engine) {
		r.POST("/api/thing", RequireAPIAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/thing", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/api/thing", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "good"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequirePageAuthKeepsQuery(t *testing.T) {
	r := sessionEngine(newStubVisitors(), func(r *gin.Engine) {
		r.GET("/forms/:name", RequirePageAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/forms/artist?id=7", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/api/auth/signin?callbackUrl=%2Fforms%2Fartist%3Fid%3D7", w.Header().Get("Location"))
}

func TestPageStateOutsideSession(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	store := PageState(c)
	require.NotNil(t, store)
	assert.Nil(t, store.Snapshot().User)
}

func TestRequestIDReusesInboundHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	var got string
	r.GET("/", func(c *gin.Context) {
		got = GetRequestID(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", got)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 26)
}

func TestRecoveryRendersFallback(t *testing.T) {
	r := gin.New()
	var recovered error
	r.Use(Recovery(logging.NewDiscardLogger(), func(c *gin.Context, err error) {
		recovered = err
		c.String(http.StatusInternalServerError, "fallback")
	}))
	r.GET("/", func(c *gin.Context) { panic("template exploded") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "fallback", w.Body.String())
	require.Error(t, recovered)
	assert.Contains(t, recovered.Error(), "template exploded")
}
