package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/importflow/importflow/backend/go-services/pkg/logger"
)

func TestRequestID_Generated(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	var fromCtx string
	r.GET("/test", func(c *gin.Context) {
		fromCtx = logger.RequestID(c.Request.Context())
		c.String(http.StatusOK, GetRequestID(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get("X-Request-ID")
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	require.Equal(t, id, w.Body.String())
	require.Equal(t, id, fromCtx)
}

func TestRequestID_Propagated(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "existing-request-id-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "existing-request-id-123", w.Header().Get("X-Request-ID"))

	// oversized ids are replaced
	req = httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 300))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Len(t, w.Header().Get("X-Request-ID"), 36)
}
