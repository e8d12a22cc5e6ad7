package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/importflow/importflow/backend/go-services/internal/process"
	"github.com/importflow/importflow/backend/go-services/internal/process/repository"
	"github.com/stretchr/testify/require"
)

type recordingCleaner struct {
	ids []string
	err error
}

func (r *recordingCleaner) UnlinkProcess(_ context.Context, id string) error {
	r.ids = append(r.ids, id)
	return r.err
}

func TestCreateDefaults(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryService()

	p, err := svc.Create(ctx, &process.Process{ProcessNumber: "  IMP-1 "})
	require.NoError(t, err)
	require.Equal(t, "IMP-1", p.ProcessNumber)
	require.Equal(t, process.StatusOpen, p.Status)
	require.Len(t, p.DocumentsPipeline, 4)

	_, err = svc.Create(ctx, &process.Process{})
	require.ErrorIs(t, err, ErrInvalid)
	_, err = svc.Create(ctx, &process.Process{ProcessNumber: "IMP-2", Status: "shipped"})
	require.ErrorIs(t, err, ErrInvalid)

	// explicit pipeline wins over the default one
	p, err = svc.Create(ctx, &process.Process{ProcessNumber: "IMP-3", DocumentsPipeline: process.Pipeline{}})
	require.NoError(t, err)
	require.Empty(t, p.DocumentsPipeline)
}

func TestUpdateAndPipelineEntry(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryService()
	p, err := svc.Create(ctx, &process.Process{ProcessNumber: "IMP-1"})
	require.NoError(t, err)

	bad := "sailing"
	_, err = svc.Update(ctx, p.ID, process.Patch{Status: &bad})
	require.ErrorIs(t, err, ErrInvalid)

	st := process.StatusCustomsClearance
	up, err := svc.Update(ctx, p.ID, process.Patch{Status: &st})
	require.NoError(t, err)
	require.Equal(t, st, up.Status)

	_, err = svc.Update(ctx, "404", process.Patch{Status: &st})
	require.ErrorIs(t, err, ErrNotFound)

	up, err = svc.UpdatePipelineEntry(ctx, p.ID, process.PipelineEntry{DocumentType: "bill_of_lading", Status: "completed", FileHash: "cafe", UpdatedAt: "2001-01-01T00:00:00Z"})
	require.NoError(t, err)
	e, ok := up.DocumentsPipeline.Entry("bill_of_lading")
	require.True(t, ok)
	require.Equal(t, "completed", e.Status)
	// the caller's timestamp is replaced by the write time
	stamped, err := time.Parse(time.RFC3339, e.UpdatedAt)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now(), stamped, time.Minute)

	stored, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, stored.DocumentsPipeline, 4)
	e, _ = stored.DocumentsPipeline.Entry("bill_of_lading")
	require.Equal(t, "cafe", e.FileHash)

	_, err = svc.UpdatePipelineEntry(ctx, p.ID, process.PipelineEntry{Status: "pending"})
	require.ErrorIs(t, err, ErrInvalid)
	_, err = svc.UpdatePipelineEntry(ctx, "404", process.PipelineEntry{DocumentType: "other"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetManySkipsMissingAndKeepsOrder(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryService()
	var ids []string
	for _, n := range []string{"A", "B", "C"} {
		p, err := svc.Create(ctx, &process.Process{ProcessNumber: n})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	got, err := svc.GetMany(ctx, []string{ids[2], "999", ids[0], ids[2], " "})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "C", got[0].ProcessNumber)
	require.Equal(t, "A", got[1].ProcessNumber)

	got, err = svc.GetMany(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, got)
}

type failingRepo struct{ repository.Repository }

func (failingRepo) Get(context.Context, string) (*process.Process, error) {
	return nil, errors.New("nocodb down")
}

func TestGetManyPropagatesErrors(t *testing.T) {
	svc := NewService(failingRepo{repository.NewMemoryRepo()})
	_, err := svc.GetMany(context.Background(), []string{"1", "2"})
	require.EqualError(t, err, "nocodb down")
}

func TestDeleteCleansRelations(t *testing.T) {
	ctx := context.Background()
	rc := &recordingCleaner{err: errors.New("relations table unavailable")}
	svc := NewMemoryService(WithRelationCleaner(rc))
	p, err := svc.Create(ctx, &process.Process{ProcessNumber: "IMP-1"})
	require.NoError(t, err)

	// cleanup failure does not fail the delete
	require.NoError(t, svc.Delete(ctx, p.ID))
	require.Equal(t, []string{p.ID}, rc.ids)

	require.ErrorIs(t, svc.Delete(ctx, p.ID), ErrNotFound)
	require.Len(t, rc.ids, 1)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	_, _, err := NewMemoryService().List(context.Background(), process.Filter{Status: "lost"})
	require.ErrorIs(t, err, ErrInvalid)
}
