package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-linegate/linegate/internal/cache"
	"github.com/go-linegate/linegate/internal/line"
	"github.com/go-linegate/linegate/internal/metrics"
	"github.com/go-linegate/linegate/internal/middleware"
	"github.com/go-linegate/linegate/internal/models"
	"github.com/go-linegate/linegate/internal/retry"
	"github.com/go-linegate/linegate/internal/services"
	"github.com/go-linegate/linegate/internal/store"
	"github.com/go-linegate/linegate/internal/token"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testClientID = "client-1"
	landingURL   = "https://app.example.com/"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	router      *gin.Engine
	store       *store.Store
	users       *services.UserService
	notifyCalls *int32
}

// newHarness wires the whole HTTP surface against a stub provider, the
// way the bootstrap does in production.
func newHarness(t *testing.T) *harness {
	t.Helper()

	var notifyCalls int32

	idToken := func() string {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"iss":  "https://access.line.me",
			"sub":  "U1234",
			"aud":  testClientID,
			"exp":  time.Now().Add(time.Hour).Unix(),
			"iat":  time.Now().Unix(),
			"name": "Alice",
		}).SignedString([]byte("provider-key"))
		require.NoError(t, err)
		return signed
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/login/token", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"access_token": "at-1", "refresh_token": "rt-1", "expires_in": 2592000,
			"scope": "profile openid", "token_type": "Bearer", "id_token": "` + idToken + `"
		}`))
	})
	mux.HandleFunc("/login/verify", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"scope":"profile","client_id":"client-1","expires_in":3600}`))
	})
	mux.HandleFunc("/notify/token", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"notify-token"}`))
	})
	mux.HandleFunc("/notify/send", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&notifyCalls, 1)
		_, _ = w.Write([]byte(`{"status":200,"message":"ok"}`))
	})
	mux.HandleFunc("/notify/status", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":200}`))
	})
	mux.HandleFunc("/notify/revoke", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":200}`))
	})
	provider := httptest.NewServer(mux)
	t.Cleanup(provider.Close)

	s, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	codec, err := token.NewCodec("test-secret", "HS256", 120)
	require.NoError(t, err)

	client := retry.NewClient(
		retry.WithInitialRetryDelay(time.Millisecond),
		retry.WithMaxRetryDelay(5*time.Millisecond),
	)
	recorder := metrics.NewNoopMetrics()

	users := services.NewUserService(s, cache.NewMemoryCache[models.SessionUser](), codec, 24*time.Hour)

	loginFlow := line.NewLoginFlow(line.FlowConfig{
		ClientID:     testClientID,
		ClientSecret: "secret",
		AuthURL:      "https://access.line.me/oauth2/v2.1/authorize",
		TokenURL:     provider.URL + "/login/token",
		Scopes:       []string{"profile", "openid"},
		RedirectURL:  "https://app.example.com/line/login/callback",
	}, provider.URL+"/login/verify")
	loginSvc := services.NewLoginService(loginFlow, line.NewLoginAPI(client), s, users, recorder)

	notifyFlow := line.NewNotifyFlow(line.FlowConfig{
		ClientID:     "notify-client",
		ClientSecret: "secret",
		AuthURL:      "https://notify-bot.line.me/oauth/authorize",
		TokenURL:     provider.URL + "/notify/token",
		Scopes:       []string{"notify"},
		RedirectURL:  "https://app.example.com/line/notify/callback",
	}, provider.URL+"/notify/send", provider.URL+"/notify/status", provider.URL+"/notify/revoke")
	notifySvc := services.NewNotifyService(notifyFlow, line.NewNotifyAPI(client), s, users,
		cache.NewMemoryCache[models.CachedCredential](), recorder)

	authHandler := NewAuthHandler(loginSvc, users,
		"https://app.example.com", landingURL, 24*time.Hour, false)
	notifyHandler := NewNotifyHandler(notifySvc, landingURL)

	router := gin.New()
	router.Use(sessions.Sessions("linegate", cookie.NewStore([]byte("cookie-secret"))))

	router.GET("/line/login", authHandler.Login)
	router.GET("/line/login/callback", authHandler.Callback)
	router.POST("/auth/register", authHandler.Register)
	router.POST("/auth/login", authHandler.LocalLogin)

	authed := router.Group("/", middleware.RequireSession(users))
	authed.GET("/me", authHandler.Me)
	authed.GET("/auth/verify", authHandler.VerifyToken)
	authed.POST("/logout", authHandler.Logout)
	authed.GET("/line/notify", notifyHandler.Authorize)
	authed.GET("/line/notify/status", notifyHandler.Status)
	authed.DELETE("/line/notify", notifyHandler.Revoke)
	authed.POST("/line/notify/message", notifyHandler.Send)
	authed.GET("/line/notify/messages", notifyHandler.Messages)

	router.GET("/line/notify/callback", notifyHandler.Callback)

	return &harness{router: router, store: s, users: users, notifyCalls: &notifyCalls}
}

// login walks the full redirect dance and returns the session cookie.
func (h *harness) login(t *testing.T) *http.Cookie {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/line/login", nil)
	h.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	var stateCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "linegate" {
			stateCookie = c
		}
	}
	require.NotNil(t, stateCookie, "cookie session must carry the pending state")

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/line/login/callback?code=auth-code&state="+state, nil)
	req.AddCookie(stateCookie)
	h.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusMovedPermanently, w.Code)
	require.Equal(t, landingURL, w.Header().Get("Location"))

	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}

func (h *harness) do(method, target string, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	h.router.ServeHTTP(w, req)
	return w
}

func TestLoginRedirect(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/line/login", "")
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "access.line.me", location.Host)

	q := location.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, testClientID, q.Get("client_id"))
	assert.NotEmpty(t, q.Get("state"))
	assert.Equal(t, "profile openid", q.Get("scope"))
}

func TestLoginCallback_FullFlow(t *testing.T) {
	h := newHarness(t)

	session := h.login(t)

	w := h.do(http.MethodGet, "/me", "", session)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Alice")
	assert.Contains(t, w.Body.String(), `"login_kind":"line"`)

	login, err := h.store.GetLineLoginBySubject("U1234")
	require.NoError(t, err)
	assert.Equal(t, "at-1", login.AccessToken)
}

func TestLoginCallback_StateMismatch(t *testing.T) {
	h := newHarness(t)

	// Start the flow to park a state, then answer with a forged one.
	w := h.do(http.MethodGet, "/line/login", "")
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	var stateCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "linegate" {
			stateCookie = c
		}
	}
	require.NotNil(t, stateCookie)

	resp := h.do(http.MethodGet, "/line/login/callback?code=auth-code&state=forged", "", stateCookie)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "state mismatch")
}

func TestLoginCallback_NoPendingState(t *testing.T) {
	h := newHarness(t)
	resp := h.do(http.MethodGet, "/line/login/callback?code=auth-code&state=anything", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestLoginCallback_ProviderError(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/line/login", "")
	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	var stateCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "linegate" {
			stateCookie = c
		}
	}
	require.NotNil(t, stateCookie)

	resp := h.do(http.MethodGet,
		"/line/login/callback?error=access_denied&error_description=cancelled&state="+state, "",
		stateCookie)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "[3001]")
}

func TestLocalRegisterLoginLogout(t *testing.T) {
	h := newHarness(t)

	resp := h.do(http.MethodPost, "/auth/register",
		`{"name":"Bob","email":"bob@example.com","password":"hunter2222"}`)
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = h.do(http.MethodPost, "/auth/login",
		`{"email":"bob@example.com","password":"hunter2222"}`)
	require.Equal(t, http.StatusOK, resp.Code)

	var session *http.Cookie
	for _, c := range resp.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)

	me := h.do(http.MethodGet, "/me", "", session)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), `"login_kind":"general"`)

	resp = h.do(http.MethodPost, "/auth/login",
		`{"email":"bob@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	out := h.do(http.MethodPost, "/logout", "", session)
	require.Equal(t, http.StatusOK, out.Code)

	me = h.do(http.MethodGet, "/me", "", session)
	assert.Equal(t, http.StatusUnauthorized, me.Code)
}

func TestVerifyToken(t *testing.T) {
	h := newHarness(t)
	session := h.login(t)

	resp := h.do(http.MethodGet, "/auth/verify", "", session)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"valid":true`)
}

func TestNotifyAuthorize(t *testing.T) {
	h := newHarness(t)
	session := h.login(t)

	w := h.do(http.MethodGet, "/line/notify", "", session)
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "notify-bot.line.me", location.Host)
	// The session id is the state.
	assert.Equal(t, session.Value, location.Query().Get("state"))
}

func TestNotifyAuthorize_Unauthenticated(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/line/notify", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNotifyGrantStatusSendRevoke(t *testing.T) {
	h := newHarness(t)
	session := h.login(t)

	// No grant yet.
	resp := h.do(http.MethodGet, "/line/notify/status", "", session)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":false`)

	// Grant callback: state is the live session id.
	resp = h.do(http.MethodGet, "/line/notify/callback?code=grant-code&state="+session.Value, "")
	require.Equal(t, http.StatusMovedPermanently, resp.Code)
	assert.Equal(t, landingURL, resp.Header().Get("Location"))

	resp = h.do(http.MethodGet, "/line/notify/status", "", session)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":true`)

	// Push a message.
	resp = h.do(http.MethodPost, "/line/notify/message", `{"message":"hello"}`, session)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"name":"Alice"`)
	assert.Contains(t, resp.Body.String(), `"message":"hello"`)
	assert.EqualValues(t, 1, atomic.LoadInt32(h.notifyCalls))

	resp = h.do(http.MethodGet, "/line/notify/messages", "", session)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "hello")

	// Revoke and observe the flip.
	resp = h.do(http.MethodDelete, "/line/notify", "", session)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "success")

	resp = h.do(http.MethodGet, "/line/notify/status", "", session)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":false`)

	resp = h.do(http.MethodPost, "/line/notify/message", `{"message":"after revoke"}`, session)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestNotifyCallback_StaleState(t *testing.T) {
	h := newHarness(t)

	resp := h.do(http.MethodGet, "/line/notify/callback?code=grant-code&state=forged", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "[3001]")
}

func TestNotifySend_Validation(t *testing.T) {
	h := newHarness(t)
	session := h.login(t)

	resp := h.do(http.MethodPost, "/line/notify/message", `{"message":""}`, session)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = h.do(http.MethodPost, "/line/notify/message",
		`{"message":"x","image_thumbnail":"not-a-url"}`, session)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHealthHandler(t *testing.T) {
	h := newHarness(t)

	router := gin.New()
	health := NewHealthHandler(map[string]HealthChecker{
		"database": h.store,
		"cache":    cache.NewMemoryCache[string](),
	})
	router.GET("/healthz", health.Health)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
}
