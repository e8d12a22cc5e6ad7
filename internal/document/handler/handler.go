package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/importflow/importflow/backend/go-services/internal/document"
	"github.com/importflow/importflow/backend/go-services/internal/document/service"
	"github.com/importflow/importflow/backend/go-services/pkg/logger"
	"github.com/importflow/importflow/backend/go-services/pkg/middleware"
	"github.com/importflow/importflow/backend/go-services/pkg/validation"
)

// multipartOverhead leaves room for form fields and boundaries on top of the file limit.
const multipartOverhead = 1 << 20

type statusRequest struct {
	Status       string `json:"status" binding:"required,docstatus"`
	ErrorMessage string `json:"errorMessage"`
}

type linkRequest struct {
	FileHash     string `json:"fileHash" binding:"required"`
	DocumentType string `json:"documentType" binding:"omitempty,doctype"`
}

// RegisterDocumentRoutes mounts upload and process-document endpoints on rg.
func RegisterDocumentRoutes(rg *gin.RouterGroup, svc service.Service, maxBytes int64) {
	validation.Register()
	if maxBytes <= 0 {
		maxBytes = service.DefaultMaxBytes
	}

	rg.POST("/documents", func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)
		fh, err := c.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
			return
		}
		if fh.Size > maxBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read uploaded file"})
			return
		}
		defer f.Close()
		content, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read uploaded file"})
			return
		}

		res, err := svc.Upload(c.Request.Context(), service.UploadInput{
			FileName:     fh.Filename,
			MimeType:     fh.Header.Get("Content-Type"),
			Content:      content,
			OwnerID:      middleware.Subject(c),
			ProcessID:    strings.TrimSpace(c.PostForm("processId")),
			DocumentType: strings.TrimSpace(c.PostForm("documentType")),
		})
		if err != nil {
			writeError(c, err)
			return
		}
		status := http.StatusCreated
		if res.Cached {
			status = http.StatusOK
		}
		c.JSON(status, res)
	})

	rg.GET("/documents", func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		offset, _ := strconv.Atoi(c.Query("offset"))
		f := document.Filter{Limit: limit, Offset: offset}
		if c.Query("scope") != "all" {
			f.OwnerID = middleware.Subject(c)
		}
		if st := c.Query("status"); st != "" {
			f.Statuses = strings.Split(st, ",")
		}
		list, err := svc.List(c.Request.Context(), f)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": list})
	})

	rg.GET("/documents/:hash", func(c *gin.Context) {
		u, err := svc.Get(c.Request.Context(), service.NormalizeHash(c.Param("hash")))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	})

	rg.PATCH("/documents/:hash/status", func(c *gin.Context) {
		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message(err)})
			return
		}
		u, err := svc.UpdateStatus(c.Request.Context(), service.NormalizeHash(c.Param("hash")), req.Status, req.ErrorMessage, middleware.Subject(c))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	})

	rg.GET("/documents/:hash/url", func(c *gin.Context) {
		link, err := svc.URL(c.Request.Context(), service.NormalizeHash(c.Param("hash")))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, link)
	})

	rg.DELETE("/documents/:hash", func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), service.NormalizeHash(c.Param("hash")), middleware.Subject(c)); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	rg.GET("/processes/:id/documents", func(c *gin.Context) {
		list, err := svc.ListByProcess(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": list})
	})

	rg.POST("/processes/:id/documents", func(c *gin.Context) {
		var req linkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message(err)})
			return
		}
		hash := service.NormalizeHash(req.FileHash)
		if err := svc.Link(c.Request.Context(), c.Param("id"), hash, req.DocumentType, middleware.Subject(c)); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"processId": c.Param("id"), "fileHash": hash})
	})

	rg.DELETE("/processes/:id/documents/:hash", func(c *gin.Context) {
		if err := svc.Unlink(c.Request.Context(), c.Param("id"), service.NormalizeHash(c.Param("hash")), middleware.Subject(c)); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
	case errors.Is(err, service.ErrProcessNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "process not found"})
	case errors.Is(err, service.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
	case errors.Is(err, service.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.FromContext(c.Request.Context()).Errorf("document %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream service unavailable"})
	}
}
