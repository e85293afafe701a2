package health

import "context"

// LexicalPinger checks lexical store availability.
type LexicalPinger interface {
	Ping(ctx context.Context) error
}

// VectorPinger checks vector store availability.
type VectorPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// RerankChecker checks reranker availability.
type RerankChecker interface {
	HealthCheck(ctx context.Context) error
}
