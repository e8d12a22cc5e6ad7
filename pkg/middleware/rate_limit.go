package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/importflow/importflow/backend/go-services/pkg/metrics"
)

// limiterStore keeps one token bucket per key.
type limiterStore struct {
	rps     float64
	burst   int
	buckets sync.Map // map[string]*rate.Limiter
}

func (s *limiterStore) get(key string) *rate.Limiter {
	if v, ok := s.buckets.Load(key); ok {
		return v.(*rate.Limiter)
	}
	v, _ := s.buckets.LoadOrStore(key, rate.NewLimiter(rate.Limit(s.rps), s.burst))
	return v.(*rate.Limiter)
}

// RateLimitMiddleware enforces an in-memory token bucket per subject or client IP.
// rps is the refill rate, burst the bucket size. Limits are per process; use
// RedisRateLimitMiddleware when several replicas run.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	store := &limiterStore{rps: rps, burst: burst}
	return func(c *gin.Context) {
		if !store.get(limitKey(c)).Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
