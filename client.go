// Package clauseidx provides a Go client for the clauseidx HTTP API.
package clauseidx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// ErrAPI is the base error for non-2xx API responses. Use errors.As with
// *APIError to inspect the status and code.
var ErrAPI = errors.New("clauseidx: api error")

// APIError carries the HTTP status and the server's error body.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("clauseidx: api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return ErrAPI }

// Client talks to a clauseidx server.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithAPIKey sets the bearer token sent with ingest and ask requests.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Clause is one contract clause record for ingestion.
type Clause struct {
	ContractID string `json:"contract_id"`
	ClauseID   string `json:"clause_id"`
	Heading    string `json:"heading,omitempty"`
	Text       string `json:"text"`
	Page       int    `json:"page,omitempty"`
	LineStart  int    `json:"line_start,omitempty"`
	LineEnd    int    `json:"line_end,omitempty"`
	Lang       string `json:"lang,omitempty"`
	Source     string `json:"source,omitempty"`
}

// IngestRequest is the POST /ingest body.
type IngestRequest struct {
	IndexName string   `json:"index_name"`
	Reset     bool     `json:"reset,omitempty"`
	Clauses   []Clause `json:"clauses"`
}

// BatchFailure reports one ingestion batch that did not commit.
type BatchFailure struct {
	Offset int    `json:"offset"`
	Count  int    `json:"count"`
	Stage  string `json:"stage"`
	Error  string `json:"error"`
}

// IngestReport is the POST /ingest reply.
type IngestReport struct {
	IndexName      string         `json:"index_name"`
	CollectionName string         `json:"collection_name"`
	IndexedCount   int            `json:"indexed_count"`
	Reset          bool           `json:"reset"`
	Failures       []BatchFailure `json:"failures,omitempty"`
}

// Partial reports whether any batch failed.
func (r *IngestReport) Partial() bool { return len(r.Failures) > 0 }

// AskRequest is the POST /ask body. Alpha nil means the server default (0.5).
type AskRequest struct {
	IndexName string   `json:"index_name"`
	Query     string   `json:"query"`
	TopK      int      `json:"top_k,omitempty"`
	Alpha     *float64 `json:"alpha,omitempty"`
	Rerank    bool     `json:"rerank,omitempty"`
}

// Result is one ranked clause.
type Result struct {
	ContractID   string   `json:"contract_id"`
	ClauseID     string   `json:"clause_id"`
	Heading      string   `json:"heading,omitempty"`
	TextSnippet  string   `json:"text_snippet"`
	Page         int      `json:"page,omitempty"`
	LineRange    [2]int   `json:"line_range"`
	Lang         string   `json:"lang,omitempty"`
	LexicalScore float64  `json:"lexical_score"`
	VectorScore  float64  `json:"vector_score"`
	FusedScore   float64  `json:"fused_score"`
	RerankScore  *float64 `json:"rerank_score,omitempty"`
	Highlight    []string `json:"highlight,omitempty"`
}

// Answer is the POST /ask reply.
type Answer struct {
	Query    string   `json:"query"`
	Reranked bool     `json:"reranked"`
	Results  []Result `json:"results"`
}

// Ingest submits clauses for dual-store indexing. A partial failure is
// reported in the returned report, not as an error.
func (c *Client) Ingest(ctx context.Context, req IngestRequest) (*IngestReport, error) {
	var report IngestReport
	if err := c.post(ctx, "/ingest", req, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Ask runs one hybrid query.
func (c *Client) Ask(ctx context.Context, req AskRequest) (*Answer, error) {
	var answer Answer
	if err := c.post(ctx, "/ask", req, &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

// Health probes the server's /healthz endpoint. A degraded server still
// returns nil; only an unhealthy server (HTTP 503) is an error.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return fmt.Errorf("clauseidx: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("clauseidx: health request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("clauseidx: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("clauseidx: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("clauseidx: %s request: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("clauseidx: decode response: %w", err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	}
	return apiErr
}
