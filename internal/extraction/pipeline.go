package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/importflow/importflow/backend/go-services/internal/audit"
	"github.com/importflow/importflow/backend/go-services/internal/document"
	docsvc "github.com/importflow/importflow/backend/go-services/internal/document/service"
	"github.com/importflow/importflow/backend/go-services/internal/models"
	"github.com/importflow/importflow/backend/go-services/internal/process"
	"github.com/importflow/importflow/backend/go-services/pkg/logger"
	"github.com/importflow/importflow/backend/go-services/pkg/metrics"
)

// Documents is the part of the document service the pipeline drives.
type Documents interface {
	Get(ctx context.Context, hash string) (*document.Upload, error)
	UpdateStatus(ctx context.Context, hash, status, message, actor string) (*document.Upload, error)
	SaveExtraction(ctx context.Context, hash, documentType string, data json.RawMessage) (*document.Upload, error)
	Content(ctx context.Context, hash string) ([]byte, error)
	URL(ctx context.Context, hash string) (*docsvc.SignedURL, error)
}

// Processes updates documents pipeline entries.
type Processes interface {
	UpdatePipelineEntry(ctx context.Context, id string, e process.PipelineEntry) (*process.Process, error)
}

// Request starts one pipeline run.
type Request struct {
	FileHash     string
	ProcessID    string
	DocumentType string
	ActorID      string
	Force        bool
}

// Result is returned by Run and Extract.
type Result struct {
	FileHash      string          `json:"fileHash"`
	DocumentType  string          `json:"documentType"`
	Status        string          `json:"status"`
	ExtractedData json.RawMessage `json:"extractedData"`
	Cached        bool            `json:"cached"`
}

// Pipeline coordinates uploads, the extraction backend, the hot cache and the
// process documents pipeline.
type Pipeline struct {
	extractor Extractor
	docs      Documents
	processes Processes
	audit     *audit.Recorder
	cache     Cache
}

// NewPipeline wires a pipeline. processes, rec and cache may be nil.
func NewPipeline(ext Extractor, docs Documents, processes Processes, rec *audit.Recorder, cache Cache) *Pipeline {
	return &Pipeline{extractor: ext, docs: docs, processes: processes, audit: rec, cache: cache}
}

// Run extracts one upload, serving earlier results from the cache unless
// req.Force is set. Failures after the upload is marked processing leave the
// upload and its pipeline entry in status error. Nothing is retried.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	log := logger.FromContext(ctx)
	hash := docsvc.NormalizeHash(req.FileHash)
	if hash == "" {
		return nil, fmt.Errorf("%w: fileHash is required", ErrInvalid)
	}
	if req.DocumentType != "" && !models.KnownDocumentType(req.DocumentType) {
		return nil, fmt.Errorf("%w: unknown document type %q", ErrInvalid, req.DocumentType)
	}
	u, err := p.load(ctx, hash)
	if err != nil {
		return nil, err
	}

	if !req.Force {
		if res := p.fromCache(ctx, u); res != nil {
			metrics.ExtractionRuns.WithLabelValues("cached").Inc()
			p.setEntry(ctx, req.ProcessID, u, res.DocumentType, models.StatusCompleted, "")
			return res, nil
		}
	} else if p.cache != nil {
		if err := p.cache.Invalidate(ctx, hash); err != nil {
			log.Warnf("extraction %s: cache not invalidated: %v", hash, err)
		}
	}

	docType := req.DocumentType
	if docType == "" {
		docType = u.DocumentType
	}
	if _, err := p.docs.UpdateStatus(ctx, hash, models.StatusProcessing, "", req.ActorID); err != nil {
		return nil, mapErr(err)
	}
	p.setEntry(ctx, req.ProcessID, u, docType, models.StatusProcessing, "")
	p.audit.Record(ctx, audit.Entry{
		ProcessID:  req.ProcessID,
		FileHash:   hash,
		Stage:      audit.StageExtraction,
		FromStatus: u.Status,
		ToStatus:   models.StatusProcessing,
		ActorID:    req.ActorID,
		Message:    "extraction started",
	})

	saved, err := p.process(ctx, u, &docType)
	if err != nil {
		p.fail(ctx, req, u, docType, err)
		return nil, fmt.Errorf("extract %s: %w", hash, err)
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, hash, &CachedResult{DocumentType: docType, ExtractedData: saved.ExtractedData}); err != nil {
			log.Warnf("extraction %s: result not cached: %v", hash, err)
		}
	}
	p.setEntry(ctx, req.ProcessID, u, docType, models.StatusCompleted, "")
	p.audit.Record(ctx, audit.Entry{
		ProcessID:  req.ProcessID,
		FileHash:   hash,
		Stage:      audit.StageExtraction,
		FromStatus: models.StatusProcessing,
		ToStatus:   models.StatusCompleted,
		ActorID:    req.ActorID,
		Message:    "extracted as " + docType,
	})
	metrics.ExtractionRuns.WithLabelValues("completed").Inc()
	log.Infof("extraction %s completed as %s", hash, docType)
	return &Result{
		FileHash:      hash,
		DocumentType:  docType,
		Status:        models.StatusCompleted,
		ExtractedData: saved.ExtractedData,
	}, nil
}

// process identifies when needed, extracts and persists. docType is updated
// in place once identified so failures are reported against it.
func (p *Pipeline) process(ctx context.Context, u *document.Upload, docType *string) (*document.Upload, error) {
	src, err := p.source(ctx, u)
	if err != nil {
		return nil, err
	}
	if *docType == "" {
		t, err := p.extractor.Identify(ctx, src)
		if err != nil {
			return nil, err
		}
		*docType = t
	}
	data, err := p.extractor.Extract(ctx, src, *docType)
	if err != nil {
		return nil, err
	}
	return p.docs.SaveExtraction(ctx, u.FileHash, *docType, data)
}

func (p *Pipeline) fail(ctx context.Context, req Request, u *document.Upload, docType string, cause error) {
	log := logger.FromContext(ctx)
	log.Errorf("extraction %s failed: %v", u.FileHash, cause)
	msg := cause.Error()
	if _, err := p.docs.UpdateStatus(ctx, u.FileHash, models.StatusError, msg, req.ActorID); err != nil {
		log.Warnf("extraction %s: error status not saved: %v", u.FileHash, err)
	}
	p.setEntry(ctx, req.ProcessID, u, docType, models.StatusError, msg)
	p.audit.Record(ctx, audit.Entry{
		ProcessID:  req.ProcessID,
		FileHash:   u.FileHash,
		Stage:      audit.StageExtraction,
		FromStatus: models.StatusProcessing,
		ToStatus:   models.StatusError,
		ActorID:    req.ActorID,
		Message:    msg,
	})
	metrics.ExtractionRuns.WithLabelValues("failed").Inc()
}

// fromCache checks Redis first, then the upload row itself. A Redis hit is
// written back to a row that is not completed; a database hit backfills Redis.
func (p *Pipeline) fromCache(ctx context.Context, u *document.Upload) *Result {
	log := logger.FromContext(ctx)
	if p.cache != nil {
		c, ok, err := p.cache.Get(ctx, u.FileHash)
		if err != nil {
			log.Warnf("extraction %s: cache lookup failed: %v", u.FileHash, err)
		}
		if ok {
			docType := c.DocumentType
			if docType == "" {
				docType = u.DocumentType
			}
			if u.Status != models.StatusCompleted || !u.HasExtraction() {
				// The row was recreated or reset since the result was cached.
				if _, err := p.docs.SaveExtraction(ctx, u.FileHash, docType, c.ExtractedData); err != nil {
					log.Warnf("extraction %s: cached result not restored: %v", u.FileHash, err)
					return nil
				}
			}
			metrics.ExtractionCacheHits.WithLabelValues("redis").Inc()
			return &Result{FileHash: u.FileHash, DocumentType: docType, Status: models.StatusCompleted, ExtractedData: c.ExtractedData, Cached: true}
		}
	}
	if u.Status != models.StatusCompleted || !u.HasExtraction() {
		return nil
	}
	metrics.ExtractionCacheHits.WithLabelValues("database").Inc()
	if p.cache != nil {
		if err := p.cache.Set(ctx, u.FileHash, &CachedResult{DocumentType: u.DocumentType, ExtractedData: u.ExtractedData}); err != nil {
			log.Warnf("extraction %s: cache backfill failed: %v", u.FileHash, err)
		}
	}
	return &Result{FileHash: u.FileHash, DocumentType: u.DocumentType, Status: u.Status, ExtractedData: u.ExtractedData, Cached: true}
}

// Identify asks the backend for the document type without touching the upload.
func (p *Pipeline) Identify(ctx context.Context, hash string) (*Result, error) {
	u, err := p.load(ctx, docsvc.NormalizeHash(hash))
	if err != nil {
		return nil, err
	}
	src, err := p.source(ctx, u)
	if err != nil {
		return nil, err
	}
	t, err := p.extractor.Identify(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("identify %s: %w", u.FileHash, err)
	}
	return &Result{FileHash: u.FileHash, DocumentType: t, Status: u.Status}, nil
}

// Extract re-runs the backend for a given type and returns the data without
// saving it or touching the cache. A failure marks the upload as errored.
func (p *Pipeline) Extract(ctx context.Context, hash, documentType, actor string) (*Result, error) {
	if !models.KnownDocumentType(documentType) {
		return nil, fmt.Errorf("%w: unknown document type %q", ErrInvalid, documentType)
	}
	u, err := p.load(ctx, docsvc.NormalizeHash(hash))
	if err != nil {
		return nil, err
	}
	src, err := p.source(ctx, u)
	if err == nil {
		var data json.RawMessage
		if data, err = p.extractor.Extract(ctx, src, documentType); err == nil {
			return &Result{FileHash: u.FileHash, DocumentType: documentType, Status: u.Status, ExtractedData: data}, nil
		}
	}
	if _, serr := p.docs.UpdateStatus(ctx, u.FileHash, models.StatusError, err.Error(), actor); serr != nil {
		logger.FromContext(ctx).Warnf("extraction %s: error status not saved: %v", u.FileHash, serr)
	}
	metrics.ExtractionRuns.WithLabelValues("failed").Inc()
	return nil, fmt.Errorf("extract %s: %w", u.FileHash, err)
}

func (p *Pipeline) load(ctx context.Context, hash string) (*document.Upload, error) {
	if hash == "" {
		return nil, fmt.Errorf("%w: fileHash is required", ErrInvalid)
	}
	u, err := p.docs.Get(ctx, hash)
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

func (p *Pipeline) source(ctx context.Context, u *document.Upload) (Source, error) {
	link, err := p.docs.URL(ctx, u.FileHash)
	if err != nil {
		return Source{}, fmt.Errorf("presign %s: %w", u.StoragePath, err)
	}
	hash := u.FileHash
	return Source{
		FileHash: hash,
		FileName: u.FileName,
		MIMEType: u.MimeType,
		URL:      link.URL,
		Load: func(ctx context.Context) ([]byte, error) {
			return p.docs.Content(ctx, hash)
		},
	}, nil
}

// setEntry updates the pipeline entry best-effort; it is skipped when the run
// has no process or the document type is still unknown.
func (p *Pipeline) setEntry(ctx context.Context, processID string, u *document.Upload, docType, status, msg string) {
	if p.processes == nil || processID == "" || docType == "" {
		return
	}
	_, err := p.processes.UpdatePipelineEntry(ctx, processID, process.PipelineEntry{
		DocumentType: docType,
		Status:       status,
		FileHash:     u.FileHash,
		FileName:     u.FileName,
		ErrorMessage: msg,
	})
	if err != nil {
		logger.FromContext(ctx).Warnf("process %s: pipeline entry %s not updated: %v", processID, docType, err)
	}
}

func mapErr(err error) error {
	if errors.Is(err, docsvc.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
