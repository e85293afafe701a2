package vector

import (
	"context"
	"testing"

	"github.com/lawman-hq/clauseidx/internal/db"
	"github.com/lawman-hq/clauseidx/internal/domain"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	createCollectionFn func(ctx context.Context, name string, dim int) error
	dropCollectionFn   func(ctx context.Context, name string) error
	collectionExistsFn func(ctx context.Context, name string) (bool, error)
	upsertFn           func(ctx context.Context, collection string, points []db.VectorPoint) error
	deleteFn           func(ctx context.Context, collection string, ids []string) error
	queryFn            func(ctx context.Context, collection string, vector []float32, topK int) ([]db.VectorHit, error)
	countFn            func(ctx context.Context, collection string) (int, error)
}

func (m *mockStore) CreateCollection(ctx context.Context, name string, dim int) error {
	if m.createCollectionFn != nil {
		return m.createCollectionFn(ctx, name, dim)
	}
	return nil
}

func (m *mockStore) DropCollection(ctx context.Context, name string) error {
	if m.dropCollectionFn != nil {
		return m.dropCollectionFn(ctx, name)
	}
	return nil
}

func (m *mockStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	if m.collectionExistsFn != nil {
		return m.collectionExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) Upsert(ctx context.Context, collection string, points []db.VectorPoint) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, collection, points)
	}
	return nil
}

func (m *mockStore) Delete(ctx context.Context, collection string, ids []string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, collection, ids)
	}
	return nil
}

func (m *mockStore) Query(ctx context.Context, collection string, vector []float32, topK int) ([]db.VectorHit, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, collection, vector, topK)
	}
	return nil, nil
}

func (m *mockStore) Count(ctx context.Context, collection string) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, collection)
	}
	return 0, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

func testClause(t *testing.T, contractID, clauseID, text string) domain.Clause {
	t.Helper()
	c, err := domain.NewClause(contractID, clauseID, "Termination", text, 3, 10, 20, "en", "upload")
	if err != nil {
		t.Fatalf("NewClause: %v", err)
	}
	return c
}

func testVector(dim int) []float32 {
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = 0.1
	}
	return vec
}
