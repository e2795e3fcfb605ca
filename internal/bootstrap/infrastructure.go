package bootstrap

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-linegate/linegate/internal/cache"
	"github.com/go-linegate/linegate/internal/config"
	"github.com/go-linegate/linegate/internal/metrics"
	"github.com/go-linegate/linegate/internal/models"
	"github.com/go-linegate/linegate/internal/retry"
	"github.com/go-linegate/linegate/internal/store"
	"github.com/go-linegate/linegate/internal/token"
)

// initializeInfrastructure sets up the datastore, the caches, the
// provider HTTP client, and metrics.
func (app *Application) initializeInfrastructure() error {
	cfg := app.Config

	db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	app.DB = db
	log.Printf("[Bootstrap] datastore ready (%s)", cfg.DatabaseDriver)

	app.MetricsRecorder = metrics.Init(cfg.MetricsEnabled)

	app.RetryClient = retry.NewClient(
		retry.WithMaxRetries(cfg.ProviderMaxRetries),
		retry.WithInitialRetryDelay(cfg.ProviderRetryDelay),
		retry.WithHTTPClient(&http.Client{Timeout: cfg.ProviderTimeout}),
	)

	codec, err := token.NewCodec(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.JWTExpireMinutes)
	if err != nil {
		return fmt.Errorf("failed to build token codec: %w", err)
	}
	app.TokenCodec = codec

	return app.initializeCaches()
}

func (app *Application) initializeCaches() error {
	cfg := app.Config

	if cfg.CacheBackend == config.CacheBackendMemory {
		app.SessionCache = cache.NewMemoryCache[models.SessionUser]()
		app.CredentialCache = cache.NewMemoryCache[models.CachedCredential]()
		app.CountCache = cache.NewMemoryCache[int64]()
		log.Printf("[Bootstrap] using in-memory caches (single instance)")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sessions, err := cache.NewRueidisCache[models.SessionUser](ctx,
		cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.RedisDB,
		cfg.RedisPrefix+"session:")
	if err != nil {
		return fmt.Errorf("failed to connect session cache: %w", err)
	}

	// Credential keys already carry their own "credential:" keyspace.
	creds, err := cache.NewRueidisCache[models.CachedCredential](ctx,
		cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.RedisDB,
		cfg.RedisPrefix)
	if err != nil {
		return fmt.Errorf("failed to connect credential cache: %w", err)
	}

	counts, err := cache.NewRueidisCache[int64](ctx,
		cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.RedisDB,
		cfg.RedisPrefix+"count:")
	if err != nil {
		return fmt.Errorf("failed to connect count cache: %w", err)
	}

	app.SessionCache = sessions
	app.CredentialCache = creds
	app.CountCache = counts
	log.Printf("[Bootstrap] using Redis caches at %s", cfg.RedisAddr)
	return nil
}
