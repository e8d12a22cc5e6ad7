package audit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/importflow/importflow/backend/go-services/pkg/logger"
)

// RegisterAuditRoutes mounts GET /processes/:id/audit on rg.
func RegisterAuditRoutes(rg *gin.RouterGroup, rec *Recorder) {
	rg.GET("/processes/:id/audit", func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		list, err := rec.List(c.Request.Context(), c.Param("id"), limit)
		if err != nil {
			logger.FromContext(c.Request.Context()).Errorf("audit list for process %s: %v", c.Param("id"), err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "upstream service unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": list})
	})
}
