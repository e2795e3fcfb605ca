package middleware

import (
	"errors"
	"net/http"

	"github.com/go-linegate/linegate/internal/models"
	"github.com/go-linegate/linegate/internal/services"
	"github.com/go-linegate/linegate/internal/token"

	"github.com/gin-gonic/gin"
)

const (
	// SessionCookie is the cookie carrying the opaque session id.
	SessionCookie = "session_id"

	ContextSession   = "session"
	ContextSessionID = "session_id"
	ContextUserID    = "user_id"
)

// RequireSession resolves the session cookie against the session cache
// and aborts with 401 when it does not resolve. The resolved entry is
// placed on the request context for the handlers.
func RequireSession(users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(SessionCookie)
		if err != nil || sessionID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "session cookie required",
			})
			return
		}

		entry, err := users.GetSession(c.Request.Context(), sessionID)
		if err != nil {
			if errors.Is(err, services.ErrSessionNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":             "unauthorized",
					"error_description": "session expired or unknown",
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "session lookup failed",
			})
			return
		}

		c.Set(ContextSession, entry)
		c.Set(ContextSessionID, sessionID)
		c.Set(ContextUserID, entry.UserID)
		c.Next()
	}
}

// RequireScopes checks the session token for the required scopes.
// Must run after RequireSession.
func RequireScopes(codec *token.Codec, required ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry := SessionFromContext(c)
		if entry == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
			})
			return
		}

		claims, err := codec.Decode(entry.LoginToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "session token invalid",
			})
			return
		}
		if err := claims.RequireScopes(required...); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":             "insufficient_scope",
				"error_description": err.Error(),
			})
			return
		}

		c.Next()
	}
}

// SessionFromContext returns the session entry placed by
// RequireSession, or nil.
func SessionFromContext(c *gin.Context) *models.SessionUser {
	value, exists := c.Get(ContextSession)
	if !exists {
		return nil
	}
	entry, ok := value.(*models.SessionUser)
	if !ok {
		return nil
	}
	return entry
}
