package ask

import (
	"context"

	"github.com/lawman-hq/clauseidx/internal/domain"
	"github.com/lawman-hq/clauseidx/internal/domain/search"
)

// LexicalSearcher runs BM25 retrieval.
type LexicalSearcher interface {
	Search(ctx context.Context, index, query string, topK int) ([]search.LexicalHit, error)
}

// VectorSearcher runs similarity retrieval.
type VectorSearcher interface {
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]search.VectorHit, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Reranker rescores candidate texts against the query with a
// cross-encoder. Scores come back in input order.
type Reranker interface {
	Rerank(ctx context.Context, query string, texts []string) ([]float64, error)
}

// Locker shares the per-index lock with ingestion resets.
type Locker interface {
	RLock(name string)
	RUnlock(name string)
}
