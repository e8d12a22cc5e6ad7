package document

import (
	"bytes"
	"encoding/json"
	"path"
	"strings"
)

// Upload is a stored file, keyed by the SHA-256 of its content.
type Upload struct {
	ID            string          `json:"id"`
	FileHash      string          `json:"fileHash"`
	FileName      string          `json:"fileName"`
	StoragePath   string          `json:"storagePath"`
	MimeType      string          `json:"mimeType"`
	Size          int64           `json:"size"`
	PageCount     int             `json:"pageCount,omitempty"`
	Status        string          `json:"status"`
	DocumentType  string          `json:"documentType,omitempty"`
	ExtractedData json.RawMessage `json:"extractedData,omitempty"`
	ErrorMessage  string          `json:"errorMessage,omitempty"`
	OwnerID       string          `json:"ownerId,omitempty"`
	CreatedAt     string          `json:"createdAt,omitempty"`
	UpdatedAt     string          `json:"updatedAt,omitempty"`
}

// HasExtraction reports whether the upload carries a usable extraction result.
func (u *Upload) HasExtraction() bool {
	d := bytes.TrimSpace(u.ExtractedData)
	return len(d) > 0 && !bytes.Equal(d, []byte("null")) && !bytes.Equal(d, []byte("{}"))
}

// Relation links an upload to an import process.
type Relation struct {
	ID           string `json:"id"`
	ProcessID    string `json:"processId"`
	FileHash     string `json:"fileHash"`
	DocumentType string `json:"documentType,omitempty"`
}

// Patch updates the mutable columns of an upload; nil fields are left unchanged.
type Patch struct {
	Status        *string
	DocumentType  *string
	ExtractedData json.RawMessage
	ErrorMessage  *string
}

// Filter selects uploads. Statuses match any of the given values.
type Filter struct {
	OwnerID  string
	Statuses []string
	Limit    int
	Offset   int
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// Normalize clamps Limit.
func (f Filter) Normalize() Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// StoragePath returns the object key for content with the given hash:
// documents/<hash[0:2]>/<hash><ext>.
func StoragePath(hash, ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	prefix := hash
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return path.Join("documents", prefix, hash+ext)
}
