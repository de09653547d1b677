package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Scorekeep/middleware"
	"Scorekeep/services/metrics"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter() *gin.Engine {
	r := gin.New()
	middleware.SetUpMiddleware(r, middleware.Options{SessionKey: "0123456789abcdef0123456789abcdef"})
	SetupRoutes(r, Dependencies{
		Metrics:       metrics.NewRegistry(),
		JWTSecret:     "routes-secret",
		TokenTTL:      time.Hour,
		PollInterval:  10 * time.Second,
		InvitationTTL: time.Minute,
	})
	return r
}

func TestPublicRoutes(t *testing.T) {
	r := newRouter()

	for path, want := range map[string]int{
		"/ping":                 http.StatusOK,
		"/metrics":              http.StatusOK,
		"/api/realtime-config":  http.StatusOK,
		"/swagger/doc.json":     http.StatusOK,
		"/api/no-such-endpoint": http.StatusNotFound,
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, w.Code, path)
	}
}

func TestProtectedRoutesNeedIdentity(t *testing.T) {
	r := newRouter()
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/auth/me"},
		{http.MethodPost, "/api/game-invitations"},
		{http.MethodGet, "/api/game-invitations/jaki-1"},
		{http.MethodPost, "/api/game-invitations/3/respond"},
		{http.MethodGet, "/api/my-invitations"},
		{http.MethodGet, "/api/game-sessions/jaki-1"},
		{http.MethodPost, "/api/game-sessions/jaki-1/start"},
		{http.MethodPost, "/api/game-sessions/jaki-1/cancel"},
		{http.MethodGet, "/api/active-game"},
		{http.MethodPost, "/api/active-game/rounds"},
		{http.MethodDelete, "/api/games/jaki/active-game"},
		{http.MethodGet, "/api/games/jaki/completed-games"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
	}
}
