package bootstrap

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-linegate/linegate/internal/metrics"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
)

const gaugeSampleInterval = 30 * time.Second

func createHTTPServer(addr string, r *gin.Engine) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// startWithGracefulShutdown runs the server and blocks until shutdown
// completes.
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	m.AddRunningJob(func(ctx context.Context) error {
		log.Printf("[Bootstrap] listening on %s (base URL %s)",
			app.Config.ServerAddr, app.Config.BaseURL)
		go func() {
			if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})

	if app.Config.MetricsEnabled {
		sampler := metrics.NewGaugeSampler(
			app.DB, app.CountCache, app.MetricsRecorder, gaugeSampleInterval)
		m.AddRunningJob(func(ctx context.Context) error {
			if err := sampler.Sample(ctx); err != nil {
				log.Printf("[Bootstrap] initial gauge sample failed: %v", err)
			}
			sampler.Run(ctx, gaugeSampleInterval)
			return nil
		})
	}

	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := app.Server.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})

	m.AddShutdownJob(func() error {
		app.RetryClient.CloseIdleConnections()

		for name, c := range map[string]interface{ Close() error }{
			"session cache":    app.SessionCache,
			"credential cache": app.CredentialCache,
			"count cache":      app.CountCache,
		} {
			if err := c.Close(); err != nil {
				log.Printf("Error closing %s: %v", name, err)
			}
		}

		if err := app.DB.Close(); err != nil {
			log.Printf("Error closing datastore: %v", err)
			return err
		}
		log.Println("Datastore closed")
		return nil
	})

	<-m.Done()
}
