package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/importflow/importflow/backend/go-services/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID propagates the caller's X-Request-ID, or a fresh uuid, to the
// response header and to the request context used by logger.FromContext.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		c.Header(requestIDHeader, id)
		c.Set("request_id", id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID.
func GetRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}
