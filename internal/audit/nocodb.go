package audit

import (
	"context"
	"fmt"

	"github.com/importflow/importflow/backend/go-services/internal/nocodb"
)

// NocoDBRepo appends entries to the audit_logs table.
type NocoDBRepo struct {
	client *nocodb.Client
	table  string
}

func NewNocoDBRepo(client *nocodb.Client, table string) *NocoDBRepo {
	return &NocoDBRepo{client: client, table: table}
}

func (n *NocoDBRepo) Insert(ctx context.Context, e *Entry) error {
	rec := nocodb.Record{
		"process_id":  e.ProcessID,
		"file_hash":   e.FileHash,
		"stage":       e.Stage,
		"from_status": e.FromStatus,
		"to_status":   e.ToStatus,
		"actor_id":    e.ActorID,
		"message":     e.Message,
		"created_at":  e.CreatedAt,
	}
	id, err := n.client.Create(ctx, n.table, rec)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	e.ID = id
	return nil
}

func (n *NocoDBRepo) List(ctx context.Context, processID string, limit int) ([]*Entry, error) {
	res, err := n.client.List(ctx, n.table, nocodb.ListOptions{
		Where: nocodb.Eq("process_id", processID),
		Sort:  "-created_at",
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	out := make([]*Entry, 0, len(res.List))
	for _, rec := range res.List {
		var e Entry
		if err := nocodb.Decode(rec, &e); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, nil
}
