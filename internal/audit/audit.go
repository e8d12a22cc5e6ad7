// Package audit records pipeline and document status transitions. Writes are
// best-effort: a failing sink never fails the operation being audited.
package audit

import (
	"context"
	"time"

	"github.com/importflow/importflow/backend/go-services/pkg/logger"
)

// Stages written by the services.
const (
	StageUpload     = "upload"
	StageStatus     = "status"
	StageLink       = "link"
	StageUnlink     = "unlink"
	StageDelete     = "delete"
	StageExtraction = "extraction"
)

// Entry is one append-only audit row.
type Entry struct {
	ID         string `json:"id" bson:"-"`
	ProcessID  string `json:"processId,omitempty" bson:"process_id,omitempty"`
	FileHash   string `json:"fileHash,omitempty" bson:"file_hash,omitempty"`
	Stage      string `json:"stage" bson:"stage"`
	FromStatus string `json:"fromStatus,omitempty" bson:"from_status,omitempty"`
	ToStatus   string `json:"toStatus,omitempty" bson:"to_status,omitempty"`
	ActorID    string `json:"actorId,omitempty" bson:"actor_id,omitempty"`
	Message    string `json:"message,omitempty" bson:"message,omitempty"`
	CreatedAt  string `json:"createdAt" bson:"created_at"`
}

// Repository is an audit sink.
type Repository interface {
	Insert(ctx context.Context, e *Entry) error
	List(ctx context.Context, processID string, limit int) ([]*Entry, error)
}

const DefaultListLimit = 200

// Recorder writes entries to a sink and swallows failures. A Recorder with a
// nil repository discards everything.
type Recorder struct {
	repo Repository
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

// Record stamps CreatedAt when empty and writes e. Errors are logged only.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil || r.repo == nil {
		return
	}
	if e.CreatedAt == "" {
		e.CreatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if err := r.repo.Insert(ctx, &e); err != nil {
		logger.FromContext(ctx).Warnf("audit %s for file=%s process=%s not written: %v", e.Stage, e.FileHash, e.ProcessID, err)
	}
}

// List returns the newest entries of a process first.
func (r *Recorder) List(ctx context.Context, processID string, limit int) ([]*Entry, error) {
	if r == nil || r.repo == nil {
		return []*Entry{}, nil
	}
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	return r.repo.List(ctx, processID, limit)
}

// Enabled reports whether entries are persisted anywhere.
func (r *Recorder) Enabled() bool {
	return r != nil && r.repo != nil
}
