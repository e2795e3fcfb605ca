package handlers

import (
	"errors"
	"net/http"

	"github.com/go-linegate/linegate/internal/apperr"
	"github.com/go-linegate/linegate/internal/line"
	"github.com/go-linegate/linegate/internal/services"

	"github.com/gin-gonic/gin"
)

// writeError maps a service error to an HTTP response. The detail field
// carries the coded envelope verbatim so callers can triage failures
// without parsing free text.
func writeError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperr.CodeAuthJWT, apperr.CodeAuthCallback:
			c.JSON(http.StatusUnauthorized, gin.H{"detail": appErr.Error()})
		case apperr.CodeUnexpectedStatus, apperr.CodeSchemaValidation:
			c.JSON(http.StatusBadGateway, gin.H{"detail": appErr.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"detail": appErr.Error()})
		}
		return
	}

	var statusErr *line.UnexpectedStatusError
	if errors.As(err, &statusErr) {
		c.JSON(http.StatusBadGateway, gin.H{"detail": statusErr.Error()})
		return
	}
	var schemaErr *line.SchemaValidationError
	if errors.As(err, &schemaErr) {
		c.JSON(http.StatusBadGateway, gin.H{"detail": schemaErr.Error()})
		return
	}

	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "session expired or unknown"})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid email or password"})
	case errors.Is(err, services.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"detail": "email already registered"})
	case errors.Is(err, services.ErrNotifyNotGranted):
		c.JSON(http.StatusNotFound, gin.H{"detail": "notification grant missing or revoked"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
	}
}
