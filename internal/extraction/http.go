package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultHTTPTimeout = 120 * time.Second

// HTTPExtractor talks to a third-party extraction API that fetches documents
// by presigned URL.
type HTTPExtractor struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type apiRequest struct {
	FileHash     string `json:"fileHash"`
	FileName     string `json:"fileName,omitempty"`
	MIMEType     string `json:"mimeType,omitempty"`
	URL          string `json:"url,omitempty"`
	Content      string `json:"content,omitempty"`
	DocumentType string `json:"documentType,omitempty"`
	Prompt       string `json:"prompt,omitempty"`
}

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

func NewHTTPExtractor(baseURL, apiKey string, timeout time.Duration) (*HTTPExtractor, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("extraction API URL is required")
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPExtractor{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (h *HTTPExtractor) Identify(ctx context.Context, src Source) (string, error) {
	req, err := h.request(ctx, src)
	if err != nil {
		return "", err
	}
	req.Prompt = identifyPrompt
	data, err := h.post(ctx, "/identify", req)
	if err != nil {
		return "", err
	}
	var out struct {
		DocumentType string `json:"documentType"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("%w: failed to parse identify result: %v", ErrBackend, err)
	}
	return normalizeType(out.DocumentType), nil
}

func (h *HTTPExtractor) Extract(ctx context.Context, src Source, documentType string) (json.RawMessage, error) {
	req, err := h.request(ctx, src)
	if err != nil {
		return nil, err
	}
	req.DocumentType = documentType
	req.Prompt = Prompt(documentType)
	data, err := h.post(ctx, "/extract", req)
	if err != nil {
		return nil, err
	}
	return decodeObject(data)
}

func (h *HTTPExtractor) Close() error {
	h.httpClient.CloseIdleConnections()
	return nil
}

// request inlines the file only when no URL is available.
func (h *HTTPExtractor) request(ctx context.Context, src Source) (apiRequest, error) {
	req := apiRequest{FileHash: src.FileHash, FileName: src.FileName, MIMEType: src.MIMEType, URL: src.URL}
	if req.URL == "" && src.Load != nil {
		b, err := src.Load(ctx)
		if err != nil {
			return req, fmt.Errorf("failed to load document: %w", err)
		}
		req.Content = base64.StdEncoding.EncodeToString(b)
	}
	return req, nil
}

func (h *HTTPExtractor) post(ctx context.Context, path string, body apiRequest) (json.RawMessage, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to send request: %v", ErrBackend, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrBackend, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %s returned %d", ErrBackend, path, resp.StatusCode)
	}

	var result apiResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", ErrBackend, err)
	}
	if result.Code != 0 {
		return nil, fmt.Errorf("%w: extraction API error %d: %s", ErrBackend, result.Code, result.Message)
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("%w: empty data in response", ErrBackend)
	}
	return result.Data, nil
}
