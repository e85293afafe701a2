package db

import "context"

// VectorPoint is a single vector with its identity and payload.
type VectorPoint struct {
	ID      string
	Vector  []float32
	Payload map[string]string
}

// VectorHit is a single scored match from a vector search.
type VectorHit struct {
	ID      string
	Score   float64
	Payload map[string]string
}

// VectorStore is the vector backend facade. Implementations map
// collection management and KNN search onto a dedicated vector engine.
type VectorStore interface {
	Pinger
	CreateCollection(ctx context.Context, name string, dim int) error
	DropCollection(ctx context.Context, name string) error
	CollectionExists(ctx context.Context, name string) (bool, error)
	Upsert(ctx context.Context, collection string, points []VectorPoint) error
	Delete(ctx context.Context, collection string, ids []string) error
	Query(ctx context.Context, collection string, vector []float32, topK int) ([]VectorHit, error)
	Count(ctx context.Context, collection string) (int, error)
	Close() error
}
