package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/importflow/importflow/backend/go-services/pkg/logger"
)

var startTime = time.Now()

// ReadyFunc reports the health of each dependency; a nil error means up.
type ReadyFunc func(ctx context.Context) map[string]error

// RegisterHealth mounts /health (liveness) and /ready (dependency check).
func RegisterHealth(r *gin.Engine, ready ReadyFunc) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		deps := map[string]bool{}
		ok := true
		for name, err := range ready(ctx) {
			deps[name] = err == nil
			if err != nil {
				ok = false
				logger.FromContext(ctx).Warnf("readiness: %s: %v", name, err)
			}
		}
		uptime := time.Since(startTime).Round(time.Second).String()
		if !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": uptime})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": uptime})
	})
}
