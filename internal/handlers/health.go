package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthChecker is anything with a context-aware liveness probe.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	checks map[string]HealthChecker
}

func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health probes every registered dependency. Any failure degrades the
// response to 503 while still reporting the per-check breakdown.
func (h *HealthHandler) Health(c *gin.Context) {
	status := http.StatusOK
	results := gin.H{}

	for name, check := range h.checks {
		if err := check.Health(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	c.JSON(status, gin.H{
		"status": http.StatusText(status),
		"checks": results,
	})
}
