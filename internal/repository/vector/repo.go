// Package vector implements clause storage and similarity retrieval
// over a Qdrant collection.
package vector

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/lawman-hq/clauseidx/internal/db"
	"github.com/lawman-hq/clauseidx/internal/domain"
	"github.com/lawman-hq/clauseidx/internal/domain/search"
)

// store is the consumer interface for vector operations (ISP).
type store interface {
	CreateCollection(ctx context.Context, name string, dim int) error
	DropCollection(ctx context.Context, name string) error
	CollectionExists(ctx context.Context, name string) (bool, error)
	Upsert(ctx context.Context, collection string, points []db.VectorPoint) error
	Delete(ctx context.Context, collection string, ids []string) error
	Query(ctx context.Context, collection string, vector []float32, topK int) ([]db.VectorHit, error)
	Count(ctx context.Context, collection string) (int, error)
}

// Repo implements vector collection management and search.
type Repo struct {
	store store
}

// New creates a vector repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// PointID derives the stable point id for a clause key. The same key
// always maps to the same id, so re-ingesting a clause overwrites its
// previous point.
func PointID(clauseKey string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(clauseKey)).String()
}

// EnsureCollection creates the collection if it does not exist yet.
func (r *Repo) EnsureCollection(ctx context.Context, name string, dim int) error {
	exists, err := r.store.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("collection exists %s: %w", name, err)
	}
	if exists {
		return nil
	}

	if err := r.store.CreateCollection(ctx, name, dim); err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	return nil
}

// DeleteCollection removes the collection and all its points.
func (r *Repo) DeleteCollection(ctx context.Context, name string) error {
	if err := r.store.DropCollection(ctx, name); err != nil {
		if errors.Is(err, db.ErrCollectionNotFound) {
			return fmt.Errorf("collection %s: %w", name, domain.ErrCollectionNotFound)
		}
		return fmt.Errorf("drop collection %s: %w", name, err)
	}
	return nil
}

// Exists reports whether the collection exists.
func (r *Repo) Exists(ctx context.Context, name string) (bool, error) {
	ok, err := r.store.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("collection exists %s: %w", name, err)
	}
	return ok, nil
}

// Count returns the number of stored points.
func (r *Repo) Count(ctx context.Context, name string) (int, error) {
	n, err := r.store.Count(ctx, name)
	if err != nil {
		if errors.Is(err, db.ErrCollectionNotFound) {
			return 0, fmt.Errorf("collection %s: %w", name, domain.ErrCollectionNotFound)
		}
		return 0, fmt.Errorf("count %s: %w", name, err)
	}
	return n, nil
}

// Upsert writes clauses with their embeddings as points. Every vector
// must match the collection dimension.
func (r *Repo) Upsert(ctx context.Context, collection string, clauses []domain.Clause, vectors [][]float32, dim int) error {
	if len(clauses) != len(vectors) {
		return fmt.Errorf("%w: %d clauses but %d vectors", domain.ErrInvalidInput, len(clauses), len(vectors))
	}
	if len(clauses) == 0 {
		return nil
	}

	points := make([]db.VectorPoint, len(clauses))
	for i, c := range clauses {
		if len(vectors[i]) != dim {
			return fmt.Errorf("clause %s: %w", c.Key(), domain.NewDimensionMismatch(dim, len(vectors[i])))
		}
		points[i] = db.VectorPoint{
			ID:      PointID(c.Key()),
			Vector:  vectors[i],
			Payload: clauseToPayload(c),
		}
	}

	if err := r.store.Upsert(ctx, collection, points); err != nil {
		if errors.Is(err, db.ErrCollectionNotFound) {
			return fmt.Errorf("collection %s: %w", collection, domain.ErrCollectionNotFound)
		}
		return fmt.Errorf("upsert %s: %w", collection, err)
	}
	return nil
}

// DeleteByKeys removes points for the given clause keys.
func (r *Repo) DeleteByKeys(ctx context.Context, collection string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = PointID(k)
	}

	if err := r.store.Delete(ctx, collection, ids); err != nil {
		if errors.Is(err, db.ErrCollectionNotFound) {
			return fmt.Errorf("collection %s: %w", collection, domain.ErrCollectionNotFound)
		}
		return fmt.Errorf("delete points %s: %w", collection, err)
	}
	return nil
}

// Search runs a KNN query and parses payloads back into clauses.
func (r *Repo) Search(ctx context.Context, collection string, vector []float32, topK int) ([]search.VectorHit, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", domain.ErrInvalidInput)
	}

	raw, err := r.store.Query(ctx, collection, vector, topK)
	if err != nil {
		if errors.Is(err, db.ErrCollectionNotFound) {
			return nil, fmt.Errorf("collection %s: %w", collection, domain.ErrCollectionNotFound)
		}
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	hits := make([]search.VectorHit, 0, len(raw))
	for _, h := range raw {
		clause, err := clauseFromPayload(h.Payload)
		if err != nil {
			return nil, fmt.Errorf("parse point %s: %w", h.ID, err)
		}
		hits = append(hits, search.VectorHit{Clause: clause, Score: h.Score})
	}

	return hits, nil
}

func clauseToPayload(c domain.Clause) map[string]string {
	return map[string]string{
		"contract_id": c.ContractID(),
		"clause_id":   c.ClauseID(),
		"heading":     c.Heading(),
		"text":        c.Text(),
		"page":        strconv.Itoa(c.Page()),
		"line_start":  strconv.Itoa(c.LineStart()),
		"line_end":    strconv.Itoa(c.LineEnd()),
		"lang":        c.Lang(),
		"source":      c.Source(),
	}
}

func clauseFromPayload(payload map[string]string) (domain.Clause, error) {
	page, err := atoiOrZero(payload["page"])
	if err != nil {
		return domain.Clause{}, fmt.Errorf("page: %w", err)
	}
	lineStart, err := atoiOrZero(payload["line_start"])
	if err != nil {
		return domain.Clause{}, fmt.Errorf("line_start: %w", err)
	}
	lineEnd, err := atoiOrZero(payload["line_end"])
	if err != nil {
		return domain.Clause{}, fmt.Errorf("line_end: %w", err)
	}

	return domain.ReconstructClause(
		payload["contract_id"],
		payload["clause_id"],
		payload["heading"],
		payload["text"],
		page,
		lineStart,
		lineEnd,
		payload["lang"],
		payload["source"],
	), nil
}

func atoiOrZero(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
