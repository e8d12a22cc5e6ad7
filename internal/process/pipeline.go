package process

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/importflow/importflow/backend/go-services/internal/models"
)

// PipelineEntry tracks one document type inside a process.
type PipelineEntry struct {
	DocumentType string `json:"documentType"`
	Status       string `json:"status"`
	FileHash     string `json:"fileHash,omitempty"`
	FileName     string `json:"fileName,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// Pipeline is the documents pipeline stored as a JSON text column.
type Pipeline []PipelineEntry

// DefaultPipeline returns one pending entry per standard document type.
func DefaultPipeline() Pipeline {
	p := make(Pipeline, 0, len(models.StandardDocumentTypes))
	for _, t := range models.StandardDocumentTypes {
		p = append(p, PipelineEntry{DocumentType: t, Status: models.StatusPending})
	}
	return p
}

// ParsePipeline accepts the column either as a JSON array or as a string holding
// one. Empty input yields an empty pipeline; malformed input yields an empty
// pipeline and the parse error.
func ParsePipeline(raw []byte) (Pipeline, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Pipeline{}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Pipeline{}, err
		}
		return ParsePipeline([]byte(s))
	}
	var p Pipeline
	if err := json.Unmarshal(raw, &p); err != nil {
		return Pipeline{}, err
	}
	if p == nil {
		p = Pipeline{}
	}
	return p, nil
}

// String serializes the pipeline for storage.
func (p Pipeline) String() string {
	if p == nil {
		p = Pipeline{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// Entry returns the entry for documentType.
func (p Pipeline) Entry(documentType string) (PipelineEntry, bool) {
	for _, e := range p {
		if e.DocumentType == documentType {
			return e, true
		}
	}
	return PipelineEntry{}, false
}

// Upsert returns a copy of p with e replacing the entry of the same document
// type, or appended when none exists. UpdatedAt is stamped when empty.
func (p Pipeline) Upsert(e PipelineEntry) Pipeline {
	if e.UpdatedAt == "" {
		e.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	out := make(Pipeline, 0, len(p)+1)
	replaced := false
	for _, cur := range p {
		if cur.DocumentType == e.DocumentType {
			out = append(out, e)
			replaced = true
			continue
		}
		out = append(out, cur)
	}
	if !replaced {
		out = append(out, e)
	}
	return out
}
