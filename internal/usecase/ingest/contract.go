package ingest

import (
	"context"

	"github.com/lawman-hq/clauseidx/internal/domain"
)

// LexicalRepository is the lexical index contract for ingestion.
type LexicalRepository interface {
	EnsureIndex(ctx context.Context, name string) error
	DeleteIndex(ctx context.Context, name string) error
	IndexClauses(ctx context.Context, name string, clauses []domain.Clause) error
	DeleteClauses(ctx context.Context, name string, keys []string) error
}

// VectorRepository is the vector collection contract for ingestion.
type VectorRepository interface {
	EnsureCollection(ctx context.Context, name string, dim int) error
	DeleteCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, collection string, clauses []domain.Clause, vectors [][]float32, dim int) error
}

// Embedder vectorizes clause batches.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Locker serializes resets against concurrent work on the same index.
type Locker interface {
	Lock(name string)
	Unlock(name string)
	RLock(name string)
	RUnlock(name string)
}
