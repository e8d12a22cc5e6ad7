package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/importflow/importflow/backend/go-services/internal/process"
	"github.com/importflow/importflow/backend/go-services/internal/process/repository"
	"github.com/importflow/importflow/backend/go-services/pkg/logger"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid process")
)

// maxParallelLookups bounds concurrent NocoDB reads in GetMany.
const maxParallelLookups = 8

// Service defines the process business operations used by the handler layer.
type Service interface {
	List(ctx context.Context, f process.Filter) ([]*process.Process, int, error)
	Get(ctx context.Context, id string) (*process.Process, error)
	GetMany(ctx context.Context, ids []string) ([]*process.Process, error)
	Create(ctx context.Context, p *process.Process) (*process.Process, error)
	Update(ctx context.Context, id string, patch process.Patch) (*process.Process, error)
	Delete(ctx context.Context, id string) error
	UpdatePipelineEntry(ctx context.Context, id string, e process.PipelineEntry) (*process.Process, error)
}

// RelationCleaner removes the document links of a deleted process.
type RelationCleaner interface {
	UnlinkProcess(ctx context.Context, processID string) error
}

type Option func(*processService)

// WithRelationCleaner makes Delete drop the process's document relations.
func WithRelationCleaner(rc RelationCleaner) Option {
	return func(s *processService) { s.relations = rc }
}

// NewService returns a Service over repo.
func NewService(repo repository.Repository, opts ...Option) Service {
	s := &processService{repo: repo}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService(opts ...Option) Service {
	return NewService(repository.NewMemoryRepo(), opts...)
}

type processService struct {
	repo      repository.Repository
	relations RelationCleaner
}

func (s *processService) List(ctx context.Context, f process.Filter) ([]*process.Process, int, error) {
	if f.Status != "" && !process.ValidStatus(f.Status) {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalid, f.Status)
	}
	return s.repo.List(ctx, f.Normalize())
}

func (s *processService) Get(ctx context.Context, id string) (*process.Process, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

// GetMany looks ids up in parallel. Missing ids are skipped; the result keeps
// the order of the first occurrence of each id.
func (s *processService) GetMany(ctx context.Context, ids []string) ([]*process.Process, error) {
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		uniq = append(uniq, id)
	}

	found := make([]*process.Process, len(uniq))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLookups)
	for i, id := range uniq {
		g.Go(func() error {
			p, err := s.repo.Get(gctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			found[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*process.Process, 0, len(found))
	for _, p := range found {
		if p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *processService) Create(ctx context.Context, p *process.Process) (*process.Process, error) {
	p.ProcessNumber = strings.TrimSpace(p.ProcessNumber)
	if p.ProcessNumber == "" {
		return nil, fmt.Errorf("%w: processNumber is required", ErrInvalid)
	}
	if p.Status == "" {
		p.Status = process.StatusOpen
	}
	if !process.ValidStatus(p.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, p.Status)
	}
	if p.DocumentsPipeline == nil {
		p.DocumentsPipeline = process.DefaultPipeline()
	}
	id, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.Get(ctx, id)
	if err != nil {
		// the row exists; fall back to what was sent
		logger.FromContext(ctx).Warnf("process %s created but re-read failed: %v", id, err)
		p.ID = id
		return p, nil
	}
	return created, nil
}

func (s *processService) Update(ctx context.Context, id string, patch process.Patch) (*process.Process, error) {
	if patch.Status != nil && !process.ValidStatus(*patch.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, *patch.Status)
	}
	if patch.ProcessNumber != nil && strings.TrimSpace(*patch.ProcessNumber) == "" {
		return nil, fmt.Errorf("%w: processNumber cannot be empty", ErrInvalid)
	}
	if !patch.Empty() {
		if err := s.repo.Update(ctx, id, patch); err != nil {
			return nil, mapErr(err)
		}
	}
	return s.Get(ctx, id)
}

func (s *processService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapErr(err)
	}
	if s.relations != nil {
		if err := s.relations.UnlinkProcess(ctx, id); err != nil {
			logger.FromContext(ctx).Warnf("process %s deleted, relation cleanup failed: %v", id, err)
		}
	}
	return nil
}

// UpdatePipelineEntry reads the process, replaces one entry stamped with the
// current time and writes the whole pipeline back. Concurrent writers are not serialized; the last write wins.
func (s *processService) UpdatePipelineEntry(ctx context.Context, id string, e process.PipelineEntry) (*process.Process, error) {
	if strings.TrimSpace(e.DocumentType) == "" {
		return nil, fmt.Errorf("%w: documentType is required", ErrInvalid)
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	e.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	pipe := p.DocumentsPipeline.Upsert(e)
	if err := s.repo.Update(ctx, id, process.Patch{DocumentsPipeline: &pipe}); err != nil {
		return nil, mapErr(err)
	}
	p.DocumentsPipeline = pipe
	return p, nil
}

func mapErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
