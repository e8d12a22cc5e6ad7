package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/importflow/importflow/backend/go-services/internal/models"
	"github.com/importflow/importflow/backend/go-services/pkg/logger"
)

const (
	claimsKey = "claims"
	userKey   = "user"
)

// Token is a verified access token that can expose its claims.
type Token interface {
	Claims(v interface{}) error
}

// Verifier checks a raw bearer token issued by the hosted auth provider.
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// AuthMiddleware verifies Bearer tokens with ver and stores the claims and the
// derived user on the gin context.
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		scheme, token, ok := strings.Cut(auth, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		verified, err := ver.Verify(c.Request.Context(), token)
		if err != nil {
			logger.FromContext(c.Request.Context()).Debugf("token rejected: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var claims map[string]interface{}
		if err := verified.Claims(&claims); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
			return
		}
		user := models.UserFromClaims(claims)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
			return
		}

		c.Set(claimsKey, claims)
		c.Set(userKey, user)
		c.Next()
	}
}

// DenyAll rejects every request. It guards the API when no token verifier is
// configured so that routes are never served unauthenticated.
func DenyAll() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "authentication is not configured"})
	}
}

// CurrentUser returns the authenticated user, or nil outside AuthMiddleware.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// Subject returns the token subject of the caller ("" when unauthenticated).
func Subject(c *gin.Context) string {
	if v, ok := c.Get(claimsKey); ok {
		if cm, ok := v.(map[string]interface{}); ok {
			if sub, ok := cm["sub"].(string); ok {
				return sub
			}
		}
	}
	return ""
}

// limitKey prefers the authenticated subject so users behind one NAT do not
// share a bucket, and falls back to the client IP.
func limitKey(c *gin.Context) string {
	if sub := Subject(c); sub != "" {
		return "sub:" + sub
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
