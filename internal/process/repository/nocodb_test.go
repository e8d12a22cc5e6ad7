package repository

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/importflow/importflow/backend/go-services/internal/nocodb"
	"github.com/importflow/importflow/backend/go-services/internal/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNocoDB(t *testing.T, h http.HandlerFunc) *NocoDBRepo {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewNocoDBRepo(nocodb.NewClient(srv.URL, "tok", 2*time.Second), "tbl_proc")
}

func TestNocoDBRepo_GetParsesPipeline(t *testing.T) {
	r := newNocoDB(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/api/v2/tables/tbl_proc/records/7", req.URL.Path)
		_, _ = io.WriteString(w, `{"Id":7,"process_number":"IMP-7","company":"Acme","status":"in_transit",
			"documents_pipeline":"[{\"documentType\":\"packing_list\",\"status\":\"completed\",\"fileHash\":\"ab\"}]",
			"CreatedAt":"2024-05-01 10:00:00+00:00"}`)
	})

	p, err := r.Get(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "7", p.ID)
	assert.Equal(t, "IMP-7", p.ProcessNumber)
	assert.Equal(t, process.StatusInTransit, p.Status)
	require.Len(t, p.DocumentsPipeline, 1)
	assert.Equal(t, "ab", p.DocumentsPipeline[0].FileHash)
	assert.Equal(t, "2024-05-01 10:00:00+00:00", p.CreatedAt)
}

func TestNocoDBRepo_MalformedPipelineIsEmpty(t *testing.T) {
	r := newNocoDB(t, func(w http.ResponseWriter, req *http.Request) {
		_, _ = io.WriteString(w, `{"Id":3,"process_number":"IMP-3","documents_pipeline":"{broken"}`)
	})
	p, err := r.Get(context.Background(), "3")
	require.NoError(t, err)
	assert.NotNil(t, p.DocumentsPipeline)
	assert.Empty(t, p.DocumentsPipeline)
}

func TestNocoDBRepo_NotFound(t *testing.T) {
	r := newNocoDB(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := r.Get(context.Background(), "1")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, r.Delete(context.Background(), "1"), ErrNotFound)
}

func TestNocoDBRepo_ListBuildsQuery(t *testing.T) {
	var query map[string][]string
	r := newNocoDB(t, func(w http.ResponseWriter, req *http.Request) {
		query = req.URL.Query()
		_, _ = io.WriteString(w, `{"list":[{"Id":1,"process_number":"IMP-1","documents_pipeline":"[]"}],"pageInfo":{"totalRows":41}}`)
	})

	list, total, err := r.List(context.Background(), process.Filter{Search: "imp", Status: "open", Page: 2, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 41, total)
	require.Len(t, list, 1)
	assert.Equal(t, "((process_number,like,%imp%)~or(company,like,%imp%))~and(status,eq,open)", query["where"][0])
	assert.Equal(t, "-CreatedAt", query["sort"][0])
	assert.Equal(t, "20", query["limit"][0])
	assert.Equal(t, "20", query["offset"][0])
}

func TestNocoDBRepo_CreateAndUpdateSerializePipeline(t *testing.T) {
	var bodies []map[string]any
	r := newNocoDB(t, func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		b, _ := io.ReadAll(req.Body)
		assert.NoError(t, json.Unmarshal(b, &body))
		bodies = append(bodies, body)
		_, _ = io.WriteString(w, `{"Id":12}`)
	})
	ctx := context.Background()

	p := &process.Process{ProcessNumber: "IMP-12", Status: process.StatusOpen, DocumentsPipeline: process.DefaultPipeline()}
	id, err := r.Create(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "12", id)
	assert.Equal(t, "IMP-12", bodies[0]["process_number"])
	raw, ok := bodies[0]["documents_pipeline"].(string)
	require.True(t, ok, "pipeline must be sent as serialized text")
	back, err := process.ParsePipeline([]byte(raw))
	require.NoError(t, err)
	assert.Len(t, back, 4)
	_, hasID := bodies[0]["id"]
	assert.False(t, hasID)

	status := process.StatusCompleted
	require.NoError(t, r.Update(ctx, "12", process.Patch{Status: &status}))
	assert.Equal(t, float64(12), bodies[1]["Id"])
	assert.Equal(t, "completed", bodies[1]["status"])
	_, hasPipe := bodies[1]["documents_pipeline"]
	assert.False(t, hasPipe)
}
