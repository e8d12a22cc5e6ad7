package repository

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/importflow/importflow/backend/go-services/internal/process"
)

var (
	ErrNotFound = errors.New("process not found")
)

// Repository persists import processes.
type Repository interface {
	List(ctx context.Context, f process.Filter) ([]*process.Process, int, error)
	Get(ctx context.Context, id string) (*process.Process, error)
	Create(ctx context.Context, p *process.Process) (string, error)
	Update(ctx context.Context, id string, patch process.Patch) error
	Delete(ctx context.Context, id string) error
}

// MemoryRepo is an in-memory repository used by tests and local runs without NocoDB.
type MemoryRepo struct {
	mu    sync.RWMutex
	seq   int
	store map[string]*process.Process
	order map[string]int
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*process.Process), order: make(map[string]int)}
}

func (m *MemoryRepo) List(_ context.Context, f process.Filter) ([]*process.Process, int, error) {
	f = f.Normalize()
	m.mu.RLock()
	defer m.mu.RUnlock()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	matched := make([]*process.Process, 0, len(m.store))
	for _, p := range m.store {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.ProcessNumber), search) &&
			!strings.Contains(strings.ToLower(p.Company), search) {
			continue
		}
		matched = append(matched, p)
	}
	// newest first
	sort.Slice(matched, func(i, j int) bool { return m.order[matched[i].ID] > m.order[matched[j].ID] })

	total := len(matched)
	start := f.Offset()
	if start > total {
		start = total
	}
	end := start + f.PageSize
	if end > total {
		end = total
	}
	out := make([]*process.Process, 0, end-start)
	for _, p := range matched[start:end] {
		out = append(out, clone(p))
	}
	return out, total, nil
}

func (m *MemoryRepo) Get(_ context.Context, id string) (*process.Process, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.store[id]; ok {
		return clone(p), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) Create(_ context.Context, p *process.Process) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	p.ID = strconv.Itoa(m.seq)
	now := time.Now().UTC().Format(time.RFC3339)
	p.CreatedAt = now
	p.UpdatedAt = now
	m.store[p.ID] = clone(p)
	m.order[p.ID] = m.seq
	return p.ID, nil
}

func (m *MemoryRepo) Update(_ context.Context, id string, patch process.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return ErrNotFound
	}
	p.Apply(patch)
	p.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return nil
}

func (m *MemoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	delete(m.order, id)
	return nil
}

func clone(p *process.Process) *process.Process {
	c := *p
	c.DocumentsPipeline = make(process.Pipeline, len(p.DocumentsPipeline))
	copy(c.DocumentsPipeline, p.DocumentsPipeline)
	return &c
}
