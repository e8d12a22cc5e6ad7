package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/importflow/importflow/backend/go-services/internal/nocodb"
)

type sliceRepo struct {
	entries []*Entry
	err     error
}

func (s *sliceRepo) Insert(_ context.Context, e *Entry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *sliceRepo) List(_ context.Context, processID string, limit int) ([]*Entry, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := []*Entry{}
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if s.entries[i].ProcessID == processID {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}

func TestRecorderStampsAndStores(t *testing.T) {
	repo := &sliceRepo{}
	r := NewRecorder(repo)
	r.Record(context.Background(), Entry{ProcessID: "1", Stage: StageUpload, ToStatus: "pending"})
	require.Len(t, repo.entries, 1)
	_, err := time.Parse(time.RFC3339Nano, repo.entries[0].CreatedAt)
	require.NoError(t, err)

	list, err := r.List(context.Background(), "1", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.True(t, r.Enabled())
}

func TestRecorderSwallowsSinkErrors(t *testing.T) {
	r := NewRecorder(&sliceRepo{err: errors.New("sink down")})
	require.NotPanics(t, func() {
		r.Record(context.Background(), Entry{Stage: StageStatus})
	})

	var nilRec *Recorder
	nilRec.Record(context.Background(), Entry{Stage: StageStatus})
	list, err := NewRecorder(nil).List(context.Background(), "1", 10)
	require.NoError(t, err)
	require.Empty(t, list)
	require.False(t, nilRec.Enabled())
}

func TestNocoDBRepo(t *testing.T) {
	var inserted map[string]any
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			b, _ := io.ReadAll(r.Body)
			assert.NoError(t, json.Unmarshal(b, &inserted))
			_, _ = io.WriteString(w, `{"Id":5}`)
		case http.MethodGet:
			query = r.URL.RawQuery
			_, _ = io.WriteString(w, `{"list":[{"Id":5,"process_id":"9","file_hash":"ab","stage":"extraction","from_status":"processing","to_status":"completed","created_at":"2024-06-01T10:00:00Z","CreatedAt":"2024-06-01 10:00:03+00:00"}],"pageInfo":{"totalRows":1}}`)
		}
	}))
	defer srv.Close()
	repo := NewNocoDBRepo(nocodb.NewClient(srv.URL, "tok", time.Second), "audit")

	e := &Entry{ProcessID: "9", FileHash: "ab", Stage: StageExtraction, FromStatus: "processing", ToStatus: "completed", CreatedAt: "2024-06-01T10:00:00Z"}
	require.NoError(t, repo.Insert(context.Background(), e))
	assert.Equal(t, "5", e.ID)
	assert.Equal(t, "processing", inserted["from_status"])
	assert.Equal(t, "9", inserted["process_id"])

	list, err := repo.List(context.Background(), "9", 50)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "completed", list[0].ToStatus)
	assert.Equal(t, "5", list[0].ID)
	assert.Equal(t, "2024-06-01T10:00:00Z", list[0].CreatedAt)
	assert.Contains(t, query, "sort=-created_at")
}

func TestAuditRoute(t *testing.T) {
	repo := &sliceRepo{}
	rec := NewRecorder(repo)
	rec.Record(context.Background(), Entry{ProcessID: "3", Stage: StageLink})
	rec.Record(context.Background(), Entry{ProcessID: "4", Stage: StageLink})

	g := gin.New()
	RegisterAuditRoutes(g.Group("/api/v1"), rec)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/processes/3/audit", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Items []Entry `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)

	repo.err = errors.New("down")
	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/processes/3/audit", nil))
	require.Equal(t, http.StatusBadGateway, w.Code)
}
