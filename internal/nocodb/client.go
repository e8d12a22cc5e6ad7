// Package nocodb is a small client for the NocoDB v2 records API.
package nocodb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/importflow/importflow/backend/go-services/pkg/metrics"
)

var ErrNotFound = errors.New("nocodb: record not found")

// APIError is returned for non-2xx responses other than 404.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("nocodb: status %d: %s", e.StatusCode, e.Message)
}

// Record is a raw NocoDB row keyed by column name.
type Record map[string]any

// ID returns the primary key of the row as a string ("" when absent).
func (r Record) ID() string {
	return idString(r["Id"])
}

type PageInfo struct {
	TotalRows   int  `json:"totalRows"`
	Page        int  `json:"page"`
	PageSize    int  `json:"pageSize"`
	IsFirstPage bool `json:"isFirstPage"`
	IsLastPage  bool `json:"isLastPage"`
}

type ListResult struct {
	List     []Record `json:"list"`
	PageInfo PageInfo `json:"pageInfo"`
}

type ListOptions struct {
	Where  string
	Sort   string
	Limit  int
	Offset int
}

// Client talks to one NocoDB base through its API token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Ping lists a single row of table to check connectivity and credentials.
func (c *Client) Ping(ctx context.Context, table string) error {
	_, err := c.List(ctx, table, ListOptions{Limit: 1})
	return err
}

func (c *Client) List(ctx context.Context, table string, opts ListOptions) (*ListResult, error) {
	q := url.Values{}
	if opts.Where != "" {
		q.Set("where", opts.Where)
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	var out ListResult
	if err := c.do(ctx, "list", http.MethodGet, c.recordsURL(table, "", q), nil, &out); err != nil {
		return nil, err
	}
	if out.List == nil {
		out.List = []Record{}
	}
	return &out, nil
}

// FindOne returns the first row matching where, or ErrNotFound.
func (c *Client) FindOne(ctx context.Context, table, where string) (Record, error) {
	res, err := c.List(ctx, table, ListOptions{Where: where, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(res.List) == 0 {
		return nil, ErrNotFound
	}
	return res.List[0], nil
}

func (c *Client) Get(ctx context.Context, table, id string) (Record, error) {
	var out Record
	if err := c.do(ctx, "get", http.MethodGet, c.recordsURL(table, id, nil), nil, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// Create inserts rec and returns the new primary key.
func (c *Client) Create(ctx context.Context, table string, rec Record) (string, error) {
	var out Record
	if err := c.do(ctx, "create", http.MethodPost, c.recordsURL(table, "", nil), rec, &out); err != nil {
		return "", err
	}
	id := out.ID()
	if id == "" {
		return "", fmt.Errorf("nocodb: create on %s returned no Id", table)
	}
	return id, nil
}

func (c *Client) Update(ctx context.Context, table, id string, rec Record) error {
	body := Record{}
	for k, v := range rec {
		body[k] = v
	}
	body["Id"] = idValue(id)
	return c.do(ctx, "update", http.MethodPatch, c.recordsURL(table, "", nil), body, nil)
}

func (c *Client) Delete(ctx context.Context, table, id string) error {
	return c.do(ctx, "delete", http.MethodDelete, c.recordsURL(table, "", nil), Record{"Id": idValue(id)}, nil)
}

func (c *Client) recordsURL(table, id string, q url.Values) string {
	u := fmt.Sprintf("%s/api/v2/tables/%s/records", c.baseURL, url.PathEscape(table))
	if id != "" {
		u += "/" + url.PathEscape(id)
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, in, out any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.NocoDBRequestDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
	}()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("nocodb: marshal %s request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("nocodb: build %s request: %w", op, err)
	}
	req.Header.Set("xc-token", c.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("nocodb: %s request: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("nocodb: read %s response: %w", op, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("nocodb: parse %s response: %w", op, err)
	}
	return nil
}

func errorMessage(raw []byte) string {
	var e struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &e) == nil {
		for _, m := range []string{e.Msg, e.Message, e.Error} {
			if m != "" {
				return m
			}
		}
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// idValue sends numeric primary keys as JSON numbers.
func idValue(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}

func idString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
