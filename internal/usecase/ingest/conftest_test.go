package ingest

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lawman-hq/clauseidx/internal/domain"
	"github.com/lawman-hq/clauseidx/internal/indexlock"
)

type mockLex struct {
	mu sync.Mutex

	ensureIndexFn   func(ctx context.Context, name string) error
	deleteIndexFn   func(ctx context.Context, name string) error
	indexClausesFn  func(ctx context.Context, name string, clauses []domain.Clause) error
	deleteClausesFn func(ctx context.Context, name string, keys []string) error

	indexed     []domain.Clause
	deletedKeys []string
	dropped     bool
}

func (m *mockLex) EnsureIndex(ctx context.Context, name string) error {
	if m.ensureIndexFn != nil {
		return m.ensureIndexFn(ctx, name)
	}
	return nil
}

func (m *mockLex) DeleteIndex(ctx context.Context, name string) error {
	m.mu.Lock()
	m.dropped = true
	m.mu.Unlock()
	if m.deleteIndexFn != nil {
		return m.deleteIndexFn(ctx, name)
	}
	return nil
}

func (m *mockLex) IndexClauses(ctx context.Context, name string, clauses []domain.Clause) error {
	if m.indexClausesFn != nil {
		if err := m.indexClausesFn(ctx, name, clauses); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.indexed = append(m.indexed, clauses...)
	m.mu.Unlock()
	return nil
}

func (m *mockLex) DeleteClauses(ctx context.Context, name string, keys []string) error {
	m.mu.Lock()
	m.deletedKeys = append(m.deletedKeys, keys...)
	m.mu.Unlock()
	if m.deleteClausesFn != nil {
		return m.deleteClausesFn(ctx, name, keys)
	}
	return nil
}

type mockVec struct {
	mu sync.Mutex

	ensureCollectionFn func(ctx context.Context, name string, dim int) error
	deleteCollectionFn func(ctx context.Context, name string) error
	upsertFn           func(ctx context.Context, collection string, clauses []domain.Clause, vectors [][]float32, dim int) error

	upserted []domain.Clause
	dropped  bool
}

func (m *mockVec) EnsureCollection(ctx context.Context, name string, dim int) error {
	if m.ensureCollectionFn != nil {
		return m.ensureCollectionFn(ctx, name, dim)
	}
	return nil
}

func (m *mockVec) DeleteCollection(ctx context.Context, name string) error {
	m.mu.Lock()
	m.dropped = true
	m.mu.Unlock()
	if m.deleteCollectionFn != nil {
		return m.deleteCollectionFn(ctx, name)
	}
	return nil
}

func (m *mockVec) Upsert(ctx context.Context, collection string, clauses []domain.Clause, vectors [][]float32, dim int) error {
	if m.upsertFn != nil {
		if err := m.upsertFn(ctx, collection, clauses, vectors, dim); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.upserted = append(m.upserted, clauses...)
	m.mu.Unlock()
	return nil
}

type mockEmbed struct {
	mu      sync.Mutex
	batchFn func(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
	calls   int
}

func (m *mockEmbed) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.batchFn != nil {
		return m.batchFn(ctx, texts)
	}

	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = []float32{0.1, 0.2, 0.3, 0.4}
	}
	return domain.BatchEmbeddingResult{Embeddings: vectors, TotalTokens: len(texts)}, nil
}

type testEnv struct {
	svc   *Service
	lex   *mockLex
	vec   *mockVec
	embed *mockEmbed
}

func newTestService(t *testing.T, opts Options) *testEnv {
	t.Helper()

	if opts.Dimensions == 0 {
		opts.Dimensions = 4
	}
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = time.Millisecond
	}

	env := &testEnv{lex: &mockLex{}, vec: &mockVec{}, embed: &mockEmbed{}}

	svc, err := New(env.lex, env.vec, env.embed, indexlock.New(), zap.NewNop(), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(svc.Close)

	env.svc = svc
	return env
}

func testInput(contractID, clauseID, text string) Input {
	return Input{
		ContractID: contractID,
		ClauseID:   clauseID,
		Heading:    "Heading",
		Text:       text,
		Page:       1,
		LineStart:  1,
		LineEnd:    2,
		Lang:       "en",
		Source:     "upload",
	}
}

func testInputs(n int) []Input {
	inputs := make([]Input, n)
	for i := range inputs {
		inputs[i] = testInput("msa-2024", "c"+strconv.Itoa(i), "clause text "+strconv.Itoa(i))
	}
	return inputs
}
