package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/importflow/importflow/backend/go-services/internal/audit"
	"github.com/importflow/importflow/backend/go-services/internal/document"
	"github.com/importflow/importflow/backend/go-services/internal/document/repository"
	"github.com/importflow/importflow/backend/go-services/internal/models"
	"github.com/importflow/importflow/backend/go-services/internal/process"
	procsvc "github.com/importflow/importflow/backend/go-services/internal/process/service"
	"github.com/importflow/importflow/backend/go-services/pkg/logger"
	"github.com/importflow/importflow/backend/go-services/pkg/metrics"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrProcessNotFound = errors.New("process not found")
	ErrInvalid         = errors.New("invalid document request")
	ErrTooLarge        = errors.New("file too large")
)

const (
	DefaultMaxBytes = 25 << 20
	DefaultURLTTL   = time.Hour

	maxParallelLookups = 8
)

// Storage is the object store holding file contents.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Remove(ctx context.Context, key string) error
}

// Processes is the part of the process service uploads depend on.
type Processes interface {
	Get(ctx context.Context, id string) (*process.Process, error)
	UpdatePipelineEntry(ctx context.Context, id string, e process.PipelineEntry) (*process.Process, error)
}

// UploadInput is a file received from a client.
type UploadInput struct {
	FileName     string
	MimeType     string
	Content      []byte
	OwnerID      string
	ProcessID    string
	DocumentType string
}

// UploadResult reports whether the content was already stored.
type UploadResult struct {
	Upload *document.Upload `json:"upload"`
	Cached bool             `json:"cached"`
}

// SignedURL is a presigned download link.
type SignedURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service defines the document business operations used by the handler layer
// and by the extraction pipeline.
type Service interface {
	Upload(ctx context.Context, in UploadInput) (*UploadResult, error)
	Get(ctx context.Context, hash string) (*document.Upload, error)
	List(ctx context.Context, f document.Filter) ([]*document.Upload, error)
	UpdateStatus(ctx context.Context, hash, status, message, actor string) (*document.Upload, error)
	SaveExtraction(ctx context.Context, hash, documentType string, data json.RawMessage) (*document.Upload, error)
	Content(ctx context.Context, hash string) ([]byte, error)
	URL(ctx context.Context, hash string) (*SignedURL, error)
	Delete(ctx context.Context, hash, actor string) error

	Link(ctx context.Context, processID, hash, documentType, actor string) error
	Unlink(ctx context.Context, processID, hash, actor string) error
	UnlinkProcess(ctx context.Context, processID string) error
	ListByProcess(ctx context.Context, processID string) ([]*document.Upload, error)
}

// Options tunes limits; zero values fall back to defaults.
type Options struct {
	MaxBytes int64
	URLTTL   time.Duration
	// OnDelete runs after an upload row is removed.
	OnDelete func(ctx context.Context, hash string)
}

type documentService struct {
	repo      repository.Repository
	storage   Storage
	processes Processes
	audit     *audit.Recorder
	opts      Options
}

// NewService wires the document service. processes and rec may be nil.
func NewService(repo repository.Repository, storage Storage, processes Processes, rec *audit.Recorder, opts Options) Service {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.URLTTL <= 0 {
		opts.URLTTL = DefaultURLTTL
	}
	return &documentService{repo: repo, storage: storage, processes: processes, audit: rec, opts: opts}
}

// HashContent returns the hex SHA-256 used as the file key.
func HashContent(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (s *documentService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	log := logger.FromContext(ctx)
	if len(in.Content) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalid)
	}
	if int64(len(in.Content)) > s.opts.MaxBytes {
		return nil, ErrTooLarge
	}
	if in.DocumentType != "" && !models.KnownDocumentType(in.DocumentType) {
		return nil, fmt.Errorf("%w: unknown document type %q", ErrInvalid, in.DocumentType)
	}
	if in.ProcessID != "" {
		if err := s.checkProcess(ctx, in.ProcessID); err != nil {
			return nil, err
		}
	}

	hash := HashContent(in.Content)
	res := &UploadResult{}
	existing, err := s.repo.GetByHash(ctx, hash)
	switch {
	case err == nil:
		res.Upload, res.Cached = existing, true
		metrics.UploadsStored.WithLabelValues("deduplicated").Inc()
		log.Infof("upload %s already stored, reusing", hash)
	case errors.Is(err, repository.ErrNotFound):
		u, cached, err := s.store(ctx, hash, in)
		if err != nil {
			return nil, err
		}
		res.Upload, res.Cached = u, cached
	default:
		return nil, err
	}

	docType := in.DocumentType
	if docType == "" {
		docType = res.Upload.DocumentType
	}
	if in.ProcessID != "" {
		if err := s.repo.Link(ctx, document.Relation{ProcessID: in.ProcessID, FileHash: hash, DocumentType: docType}); err != nil {
			return nil, err
		}
		if docType != "" {
			s.setPipeline(ctx, in.ProcessID, process.PipelineEntry{
				DocumentType: docType,
				Status:       models.StatusPending,
				FileHash:     hash,
				FileName:     res.Upload.FileName,
			})
		}
	}
	s.audit.Record(ctx, audit.Entry{
		ProcessID: in.ProcessID,
		FileHash:  hash,
		Stage:     audit.StageUpload,
		ToStatus:  res.Upload.Status,
		ActorID:   in.OwnerID,
		Message:   uploadMessage(res.Cached, in.FileName),
	})
	return res, nil
}

func uploadMessage(cached bool, name string) string {
	if cached {
		return "deduplicated upload of " + name
	}
	return "stored " + name
}

// store writes the object and its row. A concurrent upload of the same content
// that wins the row insert turns this call into a cache hit.
func (s *documentService) store(ctx context.Context, hash string, in UploadInput) (*document.Upload, bool, error) {
	mime := document.DetectMIME(in.MimeType, in.Content)
	u := &document.Upload{
		FileHash:     hash,
		FileName:     in.FileName,
		StoragePath:  document.StoragePath(hash, document.Extension(in.FileName, in.Content)),
		MimeType:     mime,
		Size:         int64(len(in.Content)),
		Status:       models.StatusPending,
		DocumentType: in.DocumentType,
		OwnerID:      in.OwnerID,
	}
	if document.IsPDF(mime) {
		if n, err := document.PageCount(in.Content); err == nil {
			u.PageCount = n
		} else {
			logger.FromContext(ctx).Warnf("upload %s: %v", hash, err)
		}
	}
	if err := s.storage.Put(ctx, u.StoragePath, bytes.NewReader(in.Content), u.Size, mime); err != nil {
		return nil, false, err
	}
	if _, err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			existing, gerr := s.repo.GetByHash(ctx, hash)
			if gerr == nil {
				metrics.UploadsStored.WithLabelValues("deduplicated").Inc()
				return existing, true, nil
			}
		}
		return nil, false, err
	}
	metrics.UploadsStored.WithLabelValues("stored").Inc()
	return u, false, nil
}

func (s *documentService) checkProcess(ctx context.Context, id string) error {
	if s.processes == nil {
		return nil
	}
	if _, err := s.processes.Get(ctx, id); err != nil {
		if errors.Is(err, procsvc.ErrNotFound) {
			return ErrProcessNotFound
		}
		return err
	}
	return nil
}

// setPipeline updates a pipeline entry best-effort; the upload itself already succeeded.
func (s *documentService) setPipeline(ctx context.Context, processID string, e process.PipelineEntry) {
	if s.processes == nil || processID == "" {
		return
	}
	if _, err := s.processes.UpdatePipelineEntry(ctx, processID, e); err != nil {
		logger.FromContext(ctx).Warnf("process %s: pipeline entry %s not updated: %v", processID, e.DocumentType, err)
	}
}

func (s *documentService) Get(ctx context.Context, hash string) (*document.Upload, error) {
	u, err := s.repo.GetByHash(ctx, hash)
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

func (s *documentService) List(ctx context.Context, f document.Filter) ([]*document.Upload, error) {
	for _, st := range f.Statuses {
		if !models.ValidProcessingStatus(st) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, st)
		}
	}
	return s.repo.List(ctx, f.Normalize())
}

func (s *documentService) UpdateStatus(ctx context.Context, hash, status, message, actor string) (*document.Upload, error) {
	if !models.ValidProcessingStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, status)
	}
	u, err := s.repo.GetByHash(ctx, hash)
	if err != nil {
		return nil, mapErr(err)
	}
	p := document.Patch{Status: &status}
	if status == models.StatusError || message != "" {
		p.ErrorMessage = &message
	}
	if err := s.repo.Update(ctx, hash, p); err != nil {
		return nil, mapErr(err)
	}
	s.audit.Record(ctx, audit.Entry{
		FileHash:   hash,
		Stage:      audit.StageStatus,
		FromStatus: u.Status,
		ToStatus:   status,
		ActorID:    actor,
		Message:    message,
	})
	u.Status = status
	if p.ErrorMessage != nil {
		u.ErrorMessage = message
	}
	return u, nil
}

func (s *documentService) SaveExtraction(ctx context.Context, hash, documentType string, data json.RawMessage) (*document.Upload, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: extracted data is not valid JSON", ErrInvalid)
	}
	status, empty := models.StatusCompleted, ""
	p := document.Patch{Status: &status, ExtractedData: data, ErrorMessage: &empty}
	if documentType != "" {
		p.DocumentType = &documentType
	}
	if err := s.repo.Update(ctx, hash, p); err != nil {
		return nil, mapErr(err)
	}
	return s.Get(ctx, hash)
}

func (s *documentService) Content(ctx context.Context, hash string) ([]byte, error) {
	u, err := s.Get(ctx, hash)
	if err != nil {
		return nil, err
	}
	return s.storage.Get(ctx, u.StoragePath)
}

func (s *documentService) URL(ctx context.Context, hash string) (*SignedURL, error) {
	u, err := s.Get(ctx, hash)
	if err != nil {
		return nil, err
	}
	raw, err := s.storage.PresignedURL(ctx, u.StoragePath, s.opts.URLTTL)
	if err != nil {
		return nil, err
	}
	return &SignedURL{URL: raw, ExpiresAt: time.Now().Add(s.opts.URLTTL).UTC()}, nil
}

// Delete removes the object, the relations and the row. A failing object
// removal is logged and does not stop the row removal.
func (s *documentService) Delete(ctx context.Context, hash, actor string) error {
	u, err := s.Get(ctx, hash)
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	if err := s.storage.Remove(ctx, u.StoragePath); err != nil {
		log.Warnf("upload %s: object %s not removed: %v", hash, u.StoragePath, err)
	}
	if err := s.repo.UnlinkFile(ctx, hash); err != nil {
		log.Warnf("upload %s: relations not removed: %v", hash, err)
	}
	if err := s.repo.Delete(ctx, hash); err != nil {
		return mapErr(err)
	}
	if s.opts.OnDelete != nil {
		s.opts.OnDelete(ctx, hash)
	}
	s.audit.Record(ctx, audit.Entry{FileHash: hash, Stage: audit.StageDelete, FromStatus: u.Status, ActorID: actor})
	return nil
}

func (s *documentService) Link(ctx context.Context, processID, hash, documentType, actor string) error {
	if documentType != "" && !models.KnownDocumentType(documentType) {
		return fmt.Errorf("%w: unknown document type %q", ErrInvalid, documentType)
	}
	if err := s.checkProcess(ctx, processID); err != nil {
		return err
	}
	u, err := s.Get(ctx, hash)
	if err != nil {
		return err
	}
	if documentType == "" {
		documentType = u.DocumentType
	}
	if err := s.repo.Link(ctx, document.Relation{ProcessID: processID, FileHash: hash, DocumentType: documentType}); err != nil {
		return err
	}
	if documentType != "" {
		s.setPipeline(ctx, processID, process.PipelineEntry{
			DocumentType: documentType,
			Status:       u.Status,
			FileHash:     hash,
			FileName:     u.FileName,
			ErrorMessage: u.ErrorMessage,
		})
	}
	s.audit.Record(ctx, audit.Entry{ProcessID: processID, FileHash: hash, Stage: audit.StageLink, ToStatus: u.Status, ActorID: actor})
	return nil
}

func (s *documentService) Unlink(ctx context.Context, processID, hash, actor string) error {
	if err := s.repo.Unlink(ctx, processID, hash); err != nil {
		return mapErr(err)
	}
	s.audit.Record(ctx, audit.Entry{ProcessID: processID, FileHash: hash, Stage: audit.StageUnlink, ActorID: actor})
	return nil
}

func (s *documentService) UnlinkProcess(ctx context.Context, processID string) error {
	return s.repo.UnlinkProcess(ctx, processID)
}

// ListByProcess resolves the relations of a process to uploads in parallel.
// Relations pointing at deleted uploads are skipped.
func (s *documentService) ListByProcess(ctx context.Context, processID string) ([]*document.Upload, error) {
	if err := s.checkProcess(ctx, processID); err != nil {
		return nil, err
	}
	rels, err := s.repo.Relations(ctx, processID)
	if err != nil {
		return nil, err
	}
	found := make([]*document.Upload, len(rels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLookups)
	for i, rel := range rels {
		g.Go(func() error {
			u, err := s.repo.GetByHash(gctx, rel.FileHash)
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if u.DocumentType == "" {
				u.DocumentType = rel.DocumentType
			}
			found[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]*document.Upload, 0, len(found))
	for _, u := range found {
		if u != nil {
			out = append(out, u)
		}
	}
	return out, nil
}

// NormalizeHash lowercases and trims a client-supplied hash.
func NormalizeHash(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

func mapErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
