package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-linegate/linegate/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	cfg := &config.Config{
		ServerAddr:    ":0",
		BaseURL:       "http://localhost:8000",
		LandingURL:    "http://localhost:8000/",
		SessionSecret: "test-session-secret",
		SessionTTL:    24 * time.Hour,

		JWTSecret:        "test-jwt-secret",
		JWTAlgorithm:     "HS256",
		JWTExpireMinutes: 120,

		ProviderMaxRetries: 1,
		ProviderRetryDelay: time.Millisecond,

		DatabaseDriver: "sqlite",
		DatabaseDSN:    ":memory:",
		CacheBackend:   config.CacheBackendMemory,

		LineLogin: config.OAuthClient{
			ClientID:     "login-client",
			ClientSecret: "login-secret",
			AuthURL:      "https://access.line.me/oauth2/v2.1/authorize",
			TokenURL:     "https://api.line.me/oauth2/v2.1/token",
			Scopes:       []string{"profile", "openid"},
			RedirectURL:  "http://localhost:8000/line/login/callback",
		},
		LoginVerifyURL: "https://api.line.me/oauth2/v2.1/verify",
		LineNotify: config.OAuthClient{
			ClientID:     "notify-client",
			ClientSecret: "notify-secret",
			AuthURL:      "https://notify-bot.line.me/oauth/authorize",
			TokenURL:     "https://notify-bot.line.me/oauth/token",
			Scopes:       []string{"notify"},
			RedirectURL:  "http://localhost:8000/line/notify/callback",
		},
		NotifySendURL:   "https://notify-api.line.me/api/notify",
		NotifyStatusURL: "https://notify-api.line.me/api/status",
		NotifyRevokeURL: "https://notify-api.line.me/api/revoke",
	}
	return cfg
}

func newTestApplication(t *testing.T, cfg *config.Config) *Application {
	t.Helper()

	app := &Application{Config: cfg}
	require.NoError(t, app.initializeInfrastructure())
	require.NoError(t, app.initializeBusinessLayer())
	require.NoError(t, app.initializeHTTPLayer())

	t.Cleanup(func() {
		_ = app.SessionCache.Close()
		_ = app.CredentialCache.Close()
		_ = app.CountCache.Close()
		_ = app.DB.Close()
	})
	return app
}

func TestBootstrap_HealthEndpoint(t *testing.T) {
	app := newTestApplication(t, testConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	app.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"database"`)
	require.Contains(t, w.Body.String(), `"session_cache"`)
}

func TestBootstrap_MetricsDisabled(t *testing.T) {
	app := newTestApplication(t, testConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	app.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestBootstrap_MetricsWithToken(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsEnabled = true
	cfg.MetricsToken = "scrape-token"
	app := newTestApplication(t, cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	app.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer scrape-token")
	app.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestBootstrap_LoginRouteRegistered(t *testing.T) {
	app := newTestApplication(t, testConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/line/login", nil)
	app.Router.ServeHTTP(w, req)

	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	require.Contains(t, w.Header().Get("Location"), "access.line.me")
}

func TestBootstrap_SessionRoutesRequireAuth(t *testing.T) {
	app := newTestApplication(t, testConfig())

	for _, path := range []string{"/me", "/auth/verify", "/line/notify/status"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		app.Router.ServeHTTP(w, req)
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestBootstrap_RateLimitedCallback(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitEnabled = true
	cfg.RateLimitPerMinute = 2
	app := newTestApplication(t, cfg)

	var last int
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/line/login/callback", nil)
		req.RemoteAddr = "10.1.2.3:4567"
		app.Router.ServeHTTP(w, req)
		last = w.Code
	}
	require.Equal(t, http.StatusTooManyRequests, last)
}
