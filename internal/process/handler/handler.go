package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/importflow/importflow/backend/go-services/internal/process"
	"github.com/importflow/importflow/backend/go-services/internal/process/service"
	"github.com/importflow/importflow/backend/go-services/pkg/logger"
	"github.com/importflow/importflow/backend/go-services/pkg/middleware"
	"github.com/importflow/importflow/backend/go-services/pkg/validation"
)

const maxBatchIDs = 100

type createRequest struct {
	ProcessNumber       string            `json:"processNumber" binding:"required"`
	Company             string            `json:"company"`
	Supplier            string            `json:"supplier"`
	StartDate           string            `json:"startDate" binding:"omitempty,isodate"`
	ExpectedArrivalDate string            `json:"expectedArrivalDate" binding:"omitempty,isodate"`
	Status              string            `json:"status" binding:"omitempty,processstatus"`
	Notes               string            `json:"notes"`
	DocumentsPipeline   *process.Pipeline `json:"documentsPipeline"`
}

type pipelineRequest struct {
	DocumentType string `json:"documentType" binding:"required"`
	Status       string `json:"status" binding:"required,docstatus"`
	FileHash     string `json:"fileHash"`
	FileName     string `json:"fileName"`
	ErrorMessage string `json:"errorMessage"`
}

// RegisterProcessRoutes mounts the import process endpoints on rg.
func RegisterProcessRoutes(rg *gin.RouterGroup, svc service.Service) {
	validation.Register()

	rg.GET("/processes", func(c *gin.Context) {
		page, _ := strconv.Atoi(c.Query("page"))
		size, _ := strconv.Atoi(c.Query("pageSize"))
		f := process.Filter{
			Search:   strings.TrimSpace(c.Query("search")),
			Status:   c.Query("status"),
			Page:     page,
			PageSize: size,
		}.Normalize()
		list, total, err := svc.List(c.Request.Context(), f)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": list, "total": total, "page": f.Page, "pageSize": f.PageSize})
	})

	rg.GET("/processes/batch", func(c *gin.Context) {
		ids := strings.Split(c.Query("ids"), ",")
		if len(ids) > maxBatchIDs {
			c.JSON(http.StatusBadRequest, gin.H{"error": "too many ids"})
			return
		}
		list, err := svc.GetMany(c.Request.Context(), ids)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": list})
	})

	rg.POST("/processes", func(c *gin.Context) {
		var req createRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message(err)})
			return
		}
		p := &process.Process{
			ProcessNumber:       req.ProcessNumber,
			Company:             req.Company,
			Supplier:            req.Supplier,
			StartDate:           req.StartDate,
			ExpectedArrivalDate: req.ExpectedArrivalDate,
			Status:              req.Status,
			Notes:               req.Notes,
			OwnerID:             middleware.Subject(c),
		}
		if req.DocumentsPipeline != nil {
			p.DocumentsPipeline = *req.DocumentsPipeline
		}
		created, err := svc.Create(c.Request.Context(), p)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, created)
	})

	rg.GET("/processes/:id", func(c *gin.Context) {
		p, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	})

	rg.PATCH("/processes/:id", func(c *gin.Context) {
		var patch process.Patch
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message(err)})
			return
		}
		p, err := svc.Update(c.Request.Context(), c.Param("id"), patch)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	})

	rg.DELETE("/processes/:id", func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	rg.PATCH("/processes/:id/pipeline", func(c *gin.Context) {
		var req pipelineRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message(err)})
			return
		}
		p, err := svc.UpdatePipelineEntry(c.Request.Context(), c.Param("id"), process.PipelineEntry{
			DocumentType: req.DocumentType,
			Status:       req.Status,
			FileHash:     req.FileHash,
			FileName:     req.FileName,
			ErrorMessage: req.ErrorMessage,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "process not found"})
	case errors.Is(err, service.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.FromContext(c.Request.Context()).Errorf("process %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream service unavailable"})
	}
}
