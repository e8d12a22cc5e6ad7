package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/importflow/importflow/backend/go-services/internal/extraction"
	"github.com/importflow/importflow/backend/go-services/pkg/logger"
	"github.com/importflow/importflow/backend/go-services/pkg/middleware"
	"github.com/importflow/importflow/backend/go-services/pkg/validation"
)

type processRequest struct {
	FileHash     string `json:"fileHash" binding:"required"`
	ProcessID    string `json:"processId"`
	DocumentType string `json:"documentType" binding:"omitempty,doctype"`
	Force        bool   `json:"force"`
}

type identifyRequest struct {
	FileHash string `json:"fileHash" binding:"required"`
}

type extractRequest struct {
	FileHash     string `json:"fileHash" binding:"required"`
	DocumentType string `json:"documentType" binding:"required,doctype"`
}

// RegisterExtractionRoutes mounts the OCR endpoints on rg.
func RegisterExtractionRoutes(rg *gin.RouterGroup, p *extraction.Pipeline) {
	validation.Register()

	ocr := rg.Group("/ocr")

	ocr.POST("/process", func(c *gin.Context) {
		var req processRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message(err)})
			return
		}
		res, err := p.Run(c.Request.Context(), extraction.Request{
			FileHash:     req.FileHash,
			ProcessID:    req.ProcessID,
			DocumentType: req.DocumentType,
			ActorID:      middleware.Subject(c),
			Force:        req.Force,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	})

	ocr.POST("/identify", func(c *gin.Context) {
		var req identifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message(err)})
			return
		}
		res, err := p.Identify(c.Request.Context(), req.FileHash)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	})

	ocr.POST("/extract", func(c *gin.Context) {
		var req extractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message(err)})
			return
		}
		res, err := p.Extract(c.Request.Context(), req.FileHash, req.DocumentType, middleware.Subject(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	})
}

// writeError keeps backend details in the log and out of the response.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, extraction.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
	case errors.Is(err, extraction.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.FromContext(c.Request.Context()).Errorf("ocr %s: %v", c.FullPath(), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "document extraction failed"})
	}
}
