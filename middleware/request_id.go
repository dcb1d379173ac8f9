package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"investgroup/api/logger"
)

const (
	RequestIDHeader = "X-Request-ID"
	ctxRequestID    = "request_id"
)

// RequestID propagates an incoming X-Request-ID or assigns a new one, and
// attaches a request-scoped logger to the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		c.Set(ctxRequestID, id)
		c.Header(RequestIDHeader, id)

		l := logger.WithRequestID(id)
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}
