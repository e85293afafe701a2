package request

import (
	"fmt"
	"strings"

	"github.com/lawman-hq/clauseidx/internal/domain"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed query length.
	MaxQueryLength = 4096
	DefaultTopK    = 10
	MaxTopK        = 100
	DefaultAlpha   = 0.5
)

// Request is a validated ask query. Alpha weights the lexical contribution:
// 1 is pure lexical, 0 is pure vector.
type Request struct {
	query  string
	topK   int
	alpha  float64
	rerank bool
}

// New validates and normalizes ask parameters. The query must be non-empty
// after trimming, topK positive, and alpha within [0, 1].
func New(query string, topK int, alpha float64, rerank bool) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidInput, MaxQueryLength)
	}
	if topK <= 0 {
		return Request{}, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidInput, topK)
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	if alpha < 0 || alpha > 1 {
		return Request{}, fmt.Errorf("%w: alpha must be within [0, 1], got %g", domain.ErrInvalidInput, alpha)
	}

	return Request{query: query, topK: topK, alpha: alpha, rerank: rerank}, nil
}

// Query returns the query text.
func (r *Request) Query() string { return r.query }

// TopK returns the number of results to return.
func (r *Request) TopK() int { return r.topK }

// Alpha returns the lexical fusion weight.
func (r *Request) Alpha() float64 { return r.alpha }

// Rerank reports whether cross-encoder reranking was requested.
func (r *Request) Rerank() bool { return r.rerank }
