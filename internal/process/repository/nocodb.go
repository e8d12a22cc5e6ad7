package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/importflow/importflow/backend/go-services/internal/nocodb"
	"github.com/importflow/importflow/backend/go-services/internal/process"
	"github.com/importflow/importflow/backend/go-services/pkg/logger"
)

// NocoDBRepo stores processes in a NocoDB table. The documents pipeline is kept
// in the documents_pipeline column as serialized JSON.
type NocoDBRepo struct {
	client *nocodb.Client
	table  string
}

func NewNocoDBRepo(client *nocodb.Client, table string) *NocoDBRepo {
	return &NocoDBRepo{client: client, table: table}
}

// row mirrors the table columns after camelCase conversion.
type row struct {
	process.Process
	DocumentsPipeline json.RawMessage `json:"documentsPipeline"`
}

func fromRecord(rec nocodb.Record) (*process.Process, error) {
	var r row
	if err := nocodb.Decode(rec, &r); err != nil {
		return nil, err
	}
	p := r.Process
	pipe, err := process.ParsePipeline(r.DocumentsPipeline)
	if err != nil {
		logger.Warnf("process %s: unreadable documents_pipeline, treating as empty: %v", p.ID, err)
	}
	p.DocumentsPipeline = pipe
	return &p, nil
}

func (n *NocoDBRepo) List(ctx context.Context, f process.Filter) ([]*process.Process, int, error) {
	f = f.Normalize()
	var where string
	if f.Search != "" {
		where = nocodb.Or(nocodb.Like("process_number", f.Search), nocodb.Like("company", f.Search))
	}
	if f.Status != "" {
		where = nocodb.And(where, nocodb.Eq("status", f.Status))
	}
	res, err := n.client.List(ctx, n.table, nocodb.ListOptions{
		Where:  where,
		Sort:   "-CreatedAt",
		Limit:  f.PageSize,
		Offset: f.Offset(),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list processes: %w", err)
	}
	out := make([]*process.Process, 0, len(res.List))
	for _, rec := range res.List {
		p, err := fromRecord(rec)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, res.PageInfo.TotalRows, nil
}

func (n *NocoDBRepo) Get(ctx context.Context, id string) (*process.Process, error) {
	rec, err := n.client.Get(ctx, n.table, id)
	if err != nil {
		if errors.Is(err, nocodb.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get process %s: %w", id, err)
	}
	return fromRecord(rec)
}

func (n *NocoDBRepo) Create(ctx context.Context, p *process.Process) (string, error) {
	rec, err := nocodb.Encode(p)
	if err != nil {
		return "", err
	}
	rec["documents_pipeline"] = p.DocumentsPipeline.String()
	id, err := n.client.Create(ctx, n.table, rec)
	if err != nil {
		return "", fmt.Errorf("create process: %w", err)
	}
	p.ID = id
	return id, nil
}

func (n *NocoDBRepo) Update(ctx context.Context, id string, patch process.Patch) error {
	rec, err := nocodb.Encode(patch)
	if err != nil {
		return err
	}
	if patch.DocumentsPipeline != nil {
		rec["documents_pipeline"] = patch.DocumentsPipeline.String()
	}
	if err := n.client.Update(ctx, n.table, id, rec); err != nil {
		if errors.Is(err, nocodb.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("update process %s: %w", id, err)
	}
	return nil
}

func (n *NocoDBRepo) Delete(ctx context.Context, id string) error {
	if err := n.client.Delete(ctx, n.table, id); err != nil {
		if errors.Is(err, nocodb.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete process %s: %w", id, err)
	}
	return nil
}
