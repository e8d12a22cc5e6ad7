// Package extraction runs uploaded trade documents through an OCR/LLM backend
// and persists the structured result on the upload row.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/importflow/importflow/backend/go-services/internal/config"
)

var (
	ErrNotFound = errors.New("document not found")
	ErrInvalid  = errors.New("invalid extraction request")
	ErrBackend  = errors.New("extraction backend failed")
)

// Backend names accepted by EXTRACTION_BACKEND.
const (
	BackendHTTP   = "http"
	BackendVertex = "vertex"
)

// Source is what a backend receives for one document. Load reads the file
// bytes on demand so URL-based backends never download the object.
type Source struct {
	FileHash string
	FileName string
	MIMEType string
	URL      string
	Load     func(ctx context.Context) ([]byte, error)
}

// Extractor is an OCR/LLM backend.
type Extractor interface {
	// Identify returns the document type of src, or models.DocOther.
	Identify(ctx context.Context, src Source) (string, error)
	// Extract returns the structured fields of src as a JSON object.
	Extract(ctx context.Context, src Source, documentType string) (json.RawMessage, error)
	Close() error
}

// NewExtractor builds the backend selected in cfg.Extraction.Backend.
func NewExtractor(ctx context.Context, cfg *config.Config) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Extraction.Backend)) {
	case "", BackendHTTP:
		return NewHTTPExtractor(cfg.Extraction.APIURL, cfg.Extraction.APIKey, cfg.Extraction.Timeout)
	case BackendVertex:
		return NewVertexExtractor(ctx, cfg.Vertex.ProjectID, cfg.Vertex.Region, cfg.Vertex.Model)
	default:
		return nil, fmt.Errorf("unknown extraction backend %q", cfg.Extraction.Backend)
	}
}

// decodeObject checks that raw holds a JSON object, stripping markdown fences
// some models wrap their answer in.
func decodeObject(raw []byte) (json.RawMessage, error) {
	s := strings.TrimSpace(string(raw))
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") || !json.Valid([]byte(s)) {
		return nil, fmt.Errorf("%w: response is not a JSON object", ErrBackend)
	}
	return json.RawMessage(s), nil
}
