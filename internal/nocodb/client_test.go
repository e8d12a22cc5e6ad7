package nocodb

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	query  map[string]string
	token  string
	body   map[string]any
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, rr recordedRequest)) (*Client, *[]recordedRequest) {
	t.Helper()
	var reqs []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rr := recordedRequest{method: r.Method, path: r.URL.Path, query: map[string]string{}, token: r.Header.Get("xc-token")}
		for k := range r.URL.Query() {
			rr.query[k] = r.URL.Query().Get(k)
		}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			assert.NoError(t, json.Unmarshal(b, &rr.body))
		}
		reqs = append(reqs, rr)
		handler(w, rr)
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "tok", 2*time.Second), &reqs
}

func TestClientList(t *testing.T) {
	c, reqs := newTestServer(t, func(w http.ResponseWriter, rr recordedRequest) {
		_, _ = io.WriteString(w, `{"list":[{"Id":1,"process_number":"IMP-001"}],"pageInfo":{"totalRows":1,"page":1,"pageSize":25,"isFirstPage":true,"isLastPage":true}}`)
	})

	res, err := c.List(context.Background(), "tbl_proc", ListOptions{Where: Eq("status", "open"), Sort: "-CreatedAt", Limit: 25, Offset: 50})
	require.NoError(t, err)
	require.Len(t, res.List, 1)
	assert.Equal(t, "1", res.List[0].ID())
	assert.Equal(t, 1, res.PageInfo.TotalRows)

	got := (*reqs)[0]
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/api/v2/tables/tbl_proc/records", got.path)
	assert.Equal(t, "tok", got.token)
	assert.Equal(t, "(status,eq,open)", got.query["where"])
	assert.Equal(t, "-CreatedAt", got.query["sort"])
	assert.Equal(t, "25", got.query["limit"])
	assert.Equal(t, "50", got.query["offset"])
}

func TestClientFindOneEmpty(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, rr recordedRequest) {
		_, _ = io.WriteString(w, `{"list":[],"pageInfo":{"totalRows":0}}`)
	})
	_, err := c.FindOne(context.Background(), "tbl_up", Eq("file_hash", "abc"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClientGetNotFound(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, rr recordedRequest) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"msg":"Record not found"}`)
	})
	_, err := c.Get(context.Background(), "tbl_proc", "99")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClientCreateUpdateDelete(t *testing.T) {
	c, reqs := newTestServer(t, func(w http.ResponseWriter, rr recordedRequest) {
		_, _ = io.WriteString(w, `{"Id":7}`)
	})
	ctx := context.Background()

	id, err := c.Create(ctx, "tbl_proc", Record{"process_number": "IMP-7"})
	require.NoError(t, err)
	require.Equal(t, "7", id)

	require.NoError(t, c.Update(ctx, "tbl_proc", "7", Record{"status": "completed"}))
	require.NoError(t, c.Delete(ctx, "tbl_proc", "7"))

	require.Len(t, *reqs, 3)
	upd := (*reqs)[1]
	assert.Equal(t, http.MethodPatch, upd.method)
	assert.Equal(t, float64(7), upd.body["Id"])
	assert.Equal(t, "completed", upd.body["status"])
	del := (*reqs)[2]
	assert.Equal(t, http.MethodDelete, del.method)
	assert.Equal(t, float64(7), del.body["Id"])
}

func TestClientAPIError(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, rr recordedRequest) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"msg":"Invalid token"}`)
	})
	err := c.Ping(context.Background(), "tbl_proc")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid token", apiErr.Message)
}

func TestWhereBuilders(t *testing.T) {
	assert.Equal(t, "(file_hash,eq,abc)", Eq("file_hash", "abc"))
	assert.Equal(t, "(company,like,%acme ltd%)", Like("company", "acme,ltd"))
	assert.Equal(t, "(a,eq,1)~and(b,eq,2)", And(Eq("a", 1), "", Eq("b", 2)))
	assert.Equal(t, "((a,eq,1)~or(b,eq,2))", Or(Eq("a", 1), Eq("b", 2)))
	assert.Equal(t, "(a,eq,1)", Or(Eq("a", 1)))
}
