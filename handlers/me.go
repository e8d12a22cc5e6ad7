package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/importflow/importflow/backend/go-services/pkg/middleware"
)

// RegisterMe serves the caller's identity as mapped from the verified token.
func RegisterMe(rg *gin.RouterGroup) {
	rg.GET("/me", func(c *gin.Context) {
		u := middleware.CurrentUser(c)
		if u == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": u})
	})
}
