package bootstrap

import (
	"log"
	"net/http"

	"github.com/go-linegate/linegate/internal/config"
	"github.com/go-linegate/linegate/internal/handlers"
	"github.com/go-linegate/linegate/internal/metrics"
	"github.com/go-linegate/linegate/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type handlerSet struct {
	Auth   *handlers.AuthHandler
	Notify *handlers.NotifyHandler
	Health *handlers.HealthHandler
}

// initializeHTTPLayer sets up handlers, router, and server.
func (app *Application) initializeHTTPLayer() error {
	cfg := app.Config

	app.Handlers = handlerSet{
		Auth: handlers.NewAuthHandler(
			app.LoginService, app.UserService,
			cfg.BaseURL, cfg.LandingURL, cfg.SessionTTL, cfg.SecureCookie),
		Notify: handlers.NewNotifyHandler(app.NotifyService, cfg.LandingURL),
		Health: handlers.NewHealthHandler(map[string]handlers.HealthChecker{
			"database":         app.DB,
			"session_cache":    app.SessionCache,
			"credential_cache": app.CredentialCache,
		}),
	}

	router, err := app.setupRouter()
	if err != nil {
		return err
	}
	app.Router = router
	app.Server = createHTTPServer(cfg.ServerAddr, router)
	return nil
}

func (app *Application) setupRouter() (*gin.Engine, error) {
	cfg := app.Config
	h := app.Handlers

	if cfg.SecureCookie {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(metrics.HTTPMetricsMiddleware(app.MetricsRecorder))
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.RequestContext())

	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("linegate", sessionStore))

	r.GET("/health", h.Health.Health)
	app.setupMetricsEndpoint(r)

	var callbackLimit gin.HandlerFunc
	if cfg.RateLimitEnabled {
		var err error
		callbackLimit, err = newCallbackRateLimiter(cfg)
		if err != nil {
			return nil, err
		}
	} else {
		callbackLimit = func(c *gin.Context) { c.Next() }
	}

	// Login flow
	r.GET("/line/login", h.Auth.Login)
	r.GET("/line/login/callback", callbackLimit, h.Auth.Callback)

	// Local accounts
	r.POST("/auth/register", h.Auth.Register)
	r.POST("/auth/login", callbackLimit, h.Auth.LocalLogin)

	// Notify grant callback: unauthenticated, session rides in the state.
	r.GET("/line/notify/callback", callbackLimit, h.Notify.Callback)

	// Session-scoped surface
	authed := r.Group("/", middleware.RequireSession(app.UserService))
	authed.GET("/me", h.Auth.Me)
	authed.GET("/auth/verify", h.Auth.VerifyToken)
	authed.POST("/logout", h.Auth.Logout)

	notify := authed.Group("/line/notify",
		middleware.RequireScopes(app.TokenCodec, "notify"))
	notify.GET("", h.Notify.Authorize)
	notify.GET("/status", h.Notify.Status)
	notify.DELETE("", h.Notify.Revoke)
	notify.POST("/message", h.Notify.Send)
	notify.GET("/messages", h.Notify.Messages)

	return r, nil
}

func (app *Application) setupMetricsEndpoint(r *gin.Engine) {
	cfg := app.Config
	switch {
	case !cfg.MetricsEnabled:
		log.Printf("[Bootstrap] Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Printf("[Bootstrap] Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET("/metrics",
			middleware.MetricsAuth(cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()))
	default:
		log.Printf("[Bootstrap] Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

func newCallbackRateLimiter(cfg *config.Config) (gin.HandlerFunc, error) {
	if cfg.CacheBackend == config.CacheBackendRedis {
		log.Printf("[Bootstrap] rate limiting callbacks at %d req/min (redis store)", cfg.RateLimitPerMinute)
		return middleware.NewRedisRateLimiter(
			cfg.RateLimitPerMinute, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}
	log.Printf("[Bootstrap] rate limiting callbacks at %d req/min (memory store)", cfg.RateLimitPerMinute)
	return middleware.NewMemoryRateLimiter(cfg.RateLimitPerMinute)
}
