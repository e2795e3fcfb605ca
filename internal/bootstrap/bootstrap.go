// Package bootstrap wires configuration, infrastructure, services, and
// the HTTP layer into a running application.
package bootstrap

import (
	"log"
	"net/http"

	"github.com/go-linegate/linegate/internal/cache"
	"github.com/go-linegate/linegate/internal/config"
	"github.com/go-linegate/linegate/internal/metrics"
	"github.com/go-linegate/linegate/internal/models"
	"github.com/go-linegate/linegate/internal/retry"
	"github.com/go-linegate/linegate/internal/services"
	"github.com/go-linegate/linegate/internal/store"
	"github.com/go-linegate/linegate/internal/token"

	"github.com/gin-gonic/gin"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config

	// Core infrastructure
	DB              *store.Store
	MetricsRecorder metrics.Recorder
	RetryClient     *retry.Client
	SessionCache    cache.Cache[models.SessionUser]
	CredentialCache cache.Cache[models.CachedCredential]
	CountCache      cache.Cache[int64]
	TokenCodec      *token.Codec

	// Services
	UserService   *services.UserService
	LoginService  *services.LoginService
	NotifyService *services.NotifyService

	// HTTP
	Handlers handlerSet
	Router   *gin.Engine
	Server   *http.Server
}

// Run initializes and starts the application
func Run(cfg *config.Config) error {
	app := &Application{Config: cfg}

	// Phase 1: Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(); err != nil {
		return err
	}

	// Phase 3: Initialize business layer
	if err := app.initializeBusinessLayer(); err != nil {
		return err
	}

	// Phase 4: Initialize HTTP layer
	if err := app.initializeHTTPLayer(); err != nil {
		return err
	}

	// Phase 5: Start server with graceful shutdown
	app.startWithGracefulShutdown()

	return nil
}
