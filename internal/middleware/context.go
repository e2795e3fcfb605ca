package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ContextClientIP  = "client_ip"
	ContextRequestID = "request_id"

	requestIDHeader = "X-Request-ID"
)

// RequestContext stamps each request with the client IP and a request
// id, echoing the id back in the response headers. An inbound
// X-Request-ID from a trusted proxy is preserved.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Gin's ClientIP() handles X-Forwarded-For and other headers
		c.Set(ContextClientIP, c.ClientIP())

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ContextRequestID, requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()
	}
}
