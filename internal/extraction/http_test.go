package extraction

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExtractionAPI(t *testing.T, handle func(path string, req apiRequest) (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		var req apiRequest
		assert.NoError(t, json.Unmarshal(body, &req))
		status, resp := handle(r.URL.Path, req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPExtractor_IdentifyAndExtract(t *testing.T) {
	var seen []apiRequest
	srv := newExtractionAPI(t, func(path string, req apiRequest) (int, string) {
		seen = append(seen, req)
		switch path {
		case "/identify":
			return http.StatusOK, `{"code":0,"msg":"ok","data":{"documentType":"Bill of Lading"}}`
		case "/extract":
			return http.StatusOK, `{"code":0,"msg":"ok","data":{"blNumber":"MSCU123"}}`
		}
		return http.StatusNotFound, `{}`
	})
	ext, err := NewHTTPExtractor(srv.URL+"/", "secret-key", time.Second)
	require.NoError(t, err)
	defer ext.Close()

	src := Source{FileHash: "abc", FileName: "bl.pdf", MIMEType: "application/pdf", URL: "https://storage.test/bl.pdf"}
	docType, err := ext.Identify(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, "bill_of_lading", docType)

	data, err := ext.Extract(context.Background(), src, docType)
	require.NoError(t, err)
	require.JSONEq(t, `{"blNumber":"MSCU123"}`, string(data))

	require.Len(t, seen, 2)
	require.Equal(t, "https://storage.test/bl.pdf", seen[0].URL)
	require.Empty(t, seen[0].Content)
	require.Equal(t, "bill_of_lading", seen[1].DocumentType)
	require.Contains(t, seen[1].Prompt, "blNumber")
}

func TestHTTPExtractor_InlinesContentWithoutURL(t *testing.T) {
	var got apiRequest
	srv := newExtractionAPI(t, func(_ string, req apiRequest) (int, string) {
		got = req
		return http.StatusOK, `{"code":0,"data":{"documentType":"packing_list"}}`
	})
	ext, err := NewHTTPExtractor(srv.URL, "secret-key", 0)
	require.NoError(t, err)

	loads := 0
	src := Source{FileHash: "abc", Load: func(context.Context) ([]byte, error) {
		loads++
		return []byte("hello"), nil
	}}
	docType, err := ext.Identify(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, "packing_list", docType)
	require.Equal(t, 1, loads)
	require.Equal(t, "aGVsbG8=", got.Content)
}

func TestHTTPExtractor_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"api error code", http.StatusOK, `{"code":40001,"msg":"quota exceeded"}`},
		{"http error", http.StatusInternalServerError, `oops`},
		{"not json", http.StatusOK, `<html>`},
		{"empty data", http.StatusOK, `{"code":0,"msg":"ok"}`},
		{"data not an object", http.StatusOK, `{"code":0,"data":[1,2]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newExtractionAPI(t, func(string, apiRequest) (int, string) { return tt.status, tt.body })
			ext, err := NewHTTPExtractor(srv.URL, "secret-key", time.Second)
			require.NoError(t, err)
			_, err = ext.Extract(context.Background(), Source{FileHash: "abc", URL: "u"}, "packing_list")
			require.ErrorIs(t, err, ErrBackend)
		})
	}
}

func TestNewHTTPExtractor_RequiresURL(t *testing.T) {
	_, err := NewHTTPExtractor("  ", "k", time.Second)
	require.Error(t, err)
}
