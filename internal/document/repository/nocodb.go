package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/importflow/importflow/backend/go-services/internal/document"
	"github.com/importflow/importflow/backend/go-services/internal/nocodb"
	"github.com/importflow/importflow/backend/go-services/pkg/logger"
)

const relationPageLimit = 1000

// NocoDBRepo stores uploads and process relations in two NocoDB tables.
// Uploads are addressed by file_hash; NocoDB row ids stay internal.
type NocoDBRepo struct {
	client         *nocodb.Client
	uploadsTable   string
	relationsTable string
}

func NewNocoDBRepo(client *nocodb.Client, uploadsTable, relationsTable string) *NocoDBRepo {
	return &NocoDBRepo{client: client, uploadsTable: uploadsTable, relationsTable: relationsTable}
}

type uploadRow struct {
	document.Upload
	ExtractedData any `json:"extractedData"`
}

// rawJSON accepts extracted_data stored either as a JSON text column or as a
// native JSON column.
func rawJSON(hash string, v any) json.RawMessage {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		if !json.Valid([]byte(s)) {
			logger.Warnf("upload %s: extracted_data is not valid JSON, ignoring", hash)
			return nil
		}
		return json.RawMessage(s)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		return b
	}
}

func uploadFromRecord(rec nocodb.Record) (*document.Upload, error) {
	var r uploadRow
	if err := nocodb.Decode(rec, &r); err != nil {
		return nil, err
	}
	u := r.Upload
	u.ExtractedData = rawJSON(u.FileHash, r.ExtractedData)
	return &u, nil
}

func (n *NocoDBRepo) findUpload(ctx context.Context, hash string) (nocodb.Record, error) {
	rec, err := n.client.FindOne(ctx, n.uploadsTable, nocodb.Eq("file_hash", hash))
	if err != nil {
		if errors.Is(err, nocodb.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find upload %s: %w", hash, err)
	}
	return rec, nil
}

func (n *NocoDBRepo) GetByHash(ctx context.Context, hash string) (*document.Upload, error) {
	rec, err := n.findUpload(ctx, hash)
	if err != nil {
		return nil, err
	}
	return uploadFromRecord(rec)
}

func (n *NocoDBRepo) List(ctx context.Context, f document.Filter) ([]*document.Upload, error) {
	f = f.Normalize()
	var where string
	if f.OwnerID != "" {
		where = nocodb.Eq("owner_id", f.OwnerID)
	}
	if len(f.Statuses) > 0 {
		conds := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			conds = append(conds, nocodb.Eq("status", s))
		}
		where = nocodb.And(where, nocodb.Or(conds...))
	}
	res, err := n.client.List(ctx, n.uploadsTable, nocodb.ListOptions{
		Where:  where,
		Sort:   "-CreatedAt",
		Limit:  f.Limit,
		Offset: f.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	out := make([]*document.Upload, 0, len(res.List))
	for _, rec := range res.List {
		u, err := uploadFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func (n *NocoDBRepo) Create(ctx context.Context, u *document.Upload) (string, error) {
	if _, err := n.findUpload(ctx, u.FileHash); err == nil {
		return "", ErrDuplicate
	} else if !errors.Is(err, ErrNotFound) {
		return "", err
	}
	rec, err := nocodb.Encode(u)
	if err != nil {
		return "", err
	}
	delete(rec, "extracted_data")
	if len(u.ExtractedData) > 0 {
		rec["extracted_data"] = string(u.ExtractedData)
	}
	id, err := n.client.Create(ctx, n.uploadsTable, rec)
	if err != nil {
		return "", fmt.Errorf("create upload %s: %w", u.FileHash, err)
	}
	u.ID = id
	return id, nil
}

func (n *NocoDBRepo) Update(ctx context.Context, hash string, p document.Patch) error {
	rec, err := n.findUpload(ctx, hash)
	if err != nil {
		return err
	}
	set := nocodb.Record{}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.DocumentType != nil {
		set["document_type"] = *p.DocumentType
	}
	if p.ExtractedData != nil {
		set["extracted_data"] = string(p.ExtractedData)
	}
	if p.ErrorMessage != nil {
		set["error_message"] = *p.ErrorMessage
	}
	if len(set) == 0 {
		return nil
	}
	if err := n.client.Update(ctx, n.uploadsTable, rec.ID(), set); err != nil {
		return fmt.Errorf("update upload %s: %w", hash, err)
	}
	return nil
}

func (n *NocoDBRepo) Delete(ctx context.Context, hash string) error {
	rec, err := n.findUpload(ctx, hash)
	if err != nil {
		return err
	}
	if err := n.client.Delete(ctx, n.uploadsTable, rec.ID()); err != nil {
		if errors.Is(err, nocodb.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete upload %s: %w", hash, err)
	}
	return nil
}

func (n *NocoDBRepo) listRelations(ctx context.Context, where string) ([]nocodb.Record, error) {
	res, err := n.client.List(ctx, n.relationsTable, nocodb.ListOptions{Where: where, Limit: relationPageLimit})
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}
	return res.List, nil
}

func (n *NocoDBRepo) Relations(ctx context.Context, processID string) ([]document.Relation, error) {
	recs, err := n.listRelations(ctx, nocodb.Eq("process_id", processID))
	if err != nil {
		return nil, err
	}
	out := make([]document.Relation, 0, len(recs))
	for _, rec := range recs {
		var r document.Relation
		if err := nocodb.Decode(rec, &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (n *NocoDBRepo) Link(ctx context.Context, rel document.Relation) error {
	where := nocodb.And(nocodb.Eq("process_id", rel.ProcessID), nocodb.Eq("file_hash", rel.FileHash))
	existing, err := n.client.FindOne(ctx, n.relationsTable, where)
	switch {
	case err == nil:
		if rel.DocumentType == "" || existing["document_type"] == rel.DocumentType {
			return nil
		}
		return n.client.Update(ctx, n.relationsTable, existing.ID(), nocodb.Record{"document_type": rel.DocumentType})
	case errors.Is(err, nocodb.ErrNotFound):
		_, err := n.client.Create(ctx, n.relationsTable, nocodb.Record{
			"process_id":    rel.ProcessID,
			"file_hash":     rel.FileHash,
			"document_type": rel.DocumentType,
		})
		if err != nil {
			return fmt.Errorf("link %s to process %s: %w", rel.FileHash, rel.ProcessID, err)
		}
		return nil
	default:
		return fmt.Errorf("find relation: %w", err)
	}
}

func (n *NocoDBRepo) Unlink(ctx context.Context, processID, hash string) error {
	recs, err := n.listRelations(ctx, nocodb.And(nocodb.Eq("process_id", processID), nocodb.Eq("file_hash", hash)))
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return ErrNotFound
	}
	return n.deleteRelations(ctx, recs)
}

func (n *NocoDBRepo) UnlinkProcess(ctx context.Context, processID string) error {
	recs, err := n.listRelations(ctx, nocodb.Eq("process_id", processID))
	if err != nil {
		return err
	}
	return n.deleteRelations(ctx, recs)
}

func (n *NocoDBRepo) UnlinkFile(ctx context.Context, hash string) error {
	recs, err := n.listRelations(ctx, nocodb.Eq("file_hash", hash))
	if err != nil {
		return err
	}
	return n.deleteRelations(ctx, recs)
}

// deleteRelations attempts every row and returns the joined failures.
func (n *NocoDBRepo) deleteRelations(ctx context.Context, recs []nocodb.Record) error {
	var errs []error
	for _, rec := range recs {
		if err := n.client.Delete(ctx, n.relationsTable, rec.ID()); err != nil && !errors.Is(err, nocodb.ErrNotFound) {
			errs = append(errs, fmt.Errorf("delete relation %s: %w", rec.ID(), err))
		}
	}
	return errors.Join(errs...)
}
