package repository

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/importflow/importflow/backend/go-services/internal/document"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("document already exists")
)

// Repository persists uploads and their process relations.
type Repository interface {
	GetByHash(ctx context.Context, hash string) (*document.Upload, error)
	List(ctx context.Context, f document.Filter) ([]*document.Upload, error)
	Create(ctx context.Context, u *document.Upload) (string, error)
	Update(ctx context.Context, hash string, p document.Patch) error
	Delete(ctx context.Context, hash string) error

	Relations(ctx context.Context, processID string) ([]document.Relation, error)
	// Link is idempotent: an existing relation for the pair is kept (its
	// document type is refreshed when a new one is given).
	Link(ctx context.Context, rel document.Relation) error
	Unlink(ctx context.Context, processID, hash string) error
	UnlinkProcess(ctx context.Context, processID string) error
	UnlinkFile(ctx context.Context, hash string) error
}

// MemoryRepo is an in-memory repository used by tests and local runs without NocoDB.
type MemoryRepo struct {
	mu        sync.RWMutex
	seq       int
	uploads   map[string]*document.Upload // by file hash
	relations []document.Relation
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{uploads: make(map[string]*document.Upload)}
}

func (m *MemoryRepo) GetByHash(_ context.Context, hash string) (*document.Upload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.uploads[hash]; ok {
		c := *u
		return &c, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) List(_ context.Context, f document.Filter) ([]*document.Upload, error) {
	f = f.Normalize()
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*document.Upload, 0)
	for _, u := range m.uploads {
		if f.OwnerID != "" && u.OwnerID != f.OwnerID {
			continue
		}
		if len(f.Statuses) > 0 && !contains(f.Statuses, u.Status) {
			continue
		}
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.Atoi(out[i].ID)
		b, _ := strconv.Atoi(out[j].ID)
		return a > b
	})
	if f.Offset >= len(out) {
		return []*document.Upload{}, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryRepo) Create(_ context.Context, u *document.Upload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.uploads[u.FileHash]; ok {
		return "", ErrDuplicate
	}
	m.seq++
	u.ID = strconv.Itoa(m.seq)
	now := time.Now().UTC().Format(time.RFC3339)
	u.CreatedAt, u.UpdatedAt = now, now
	c := *u
	m.uploads[u.FileHash] = &c
	return u.ID, nil
}

func (m *MemoryRepo) Update(_ context.Context, hash string, p document.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.uploads[hash]
	if !ok {
		return ErrNotFound
	}
	if p.Status != nil {
		u.Status = *p.Status
	}
	if p.DocumentType != nil {
		u.DocumentType = *p.DocumentType
	}
	if p.ExtractedData != nil {
		u.ExtractedData = append([]byte(nil), p.ExtractedData...)
	}
	if p.ErrorMessage != nil {
		u.ErrorMessage = *p.ErrorMessage
	}
	u.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return nil
}

func (m *MemoryRepo) Delete(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.uploads[hash]; !ok {
		return ErrNotFound
	}
	delete(m.uploads, hash)
	return nil
}

func (m *MemoryRepo) Relations(_ context.Context, processID string) ([]document.Relation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []document.Relation{}
	for _, r := range m.relations {
		if r.ProcessID == processID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryRepo) Link(_ context.Context, rel document.Relation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.relations {
		if r.ProcessID == rel.ProcessID && r.FileHash == rel.FileHash {
			if rel.DocumentType != "" {
				m.relations[i].DocumentType = rel.DocumentType
			}
			return nil
		}
	}
	m.seq++
	rel.ID = strconv.Itoa(m.seq)
	m.relations = append(m.relations, rel)
	return nil
}

func (m *MemoryRepo) Unlink(_ context.Context, processID, hash string) error {
	n := m.removeRelations(func(r document.Relation) bool { return r.ProcessID == processID && r.FileHash == hash })
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MemoryRepo) UnlinkProcess(_ context.Context, processID string) error {
	m.removeRelations(func(r document.Relation) bool { return r.ProcessID == processID })
	return nil
}

func (m *MemoryRepo) UnlinkFile(_ context.Context, hash string) error {
	m.removeRelations(func(r document.Relation) bool { return r.FileHash == hash })
	return nil
}

func (m *MemoryRepo) removeRelations(match func(document.Relation) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.relations[:0]
	removed := 0
	for _, r := range m.relations {
		if match(r) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	m.relations = kept
	return removed
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
