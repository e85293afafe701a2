package ask

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lawman-hq/clauseidx/internal/domain"
	"github.com/lawman-hq/clauseidx/internal/domain/search"
	"github.com/lawman-hq/clauseidx/internal/domain/search/request"
	"github.com/lawman-hq/clauseidx/internal/indexlock"
)

type mockLexSearcher struct {
	fn func(ctx context.Context, index, query string, topK int) ([]search.LexicalHit, error)
}

func (m *mockLexSearcher) Search(ctx context.Context, index, query string, topK int) ([]search.LexicalHit, error) {
	if m.fn != nil {
		return m.fn(ctx, index, query, topK)
	}
	return nil, nil
}

type mockVecSearcher struct {
	fn func(ctx context.Context, collection string, vector []float32, topK int) ([]search.VectorHit, error)
}

func (m *mockVecSearcher) Search(ctx context.Context, collection string, vector []float32, topK int) ([]search.VectorHit, error) {
	if m.fn != nil {
		return m.fn(ctx, collection, vector, topK)
	}
	return nil, nil
}

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if m.fn != nil {
		return m.fn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3, 0.4}}, nil
}

type mockReranker struct {
	fn     func(ctx context.Context, query string, texts []string) ([]float64, error)
	called bool
}

func (m *mockReranker) Rerank(ctx context.Context, query string, texts []string) ([]float64, error) {
	m.called = true
	if m.fn != nil {
		return m.fn(ctx, query, texts)
	}
	return make([]float64, len(texts)), nil
}

type testEnv struct {
	svc    *Service
	lex    *mockLexSearcher
	vec    *mockVecSearcher
	embed  *mockEmbedder
	rerank *mockReranker
}

func newTestService(t *testing.T, opts Options) *testEnv {
	t.Helper()

	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}

	env := &testEnv{
		lex:    &mockLexSearcher{},
		vec:    &mockVecSearcher{},
		embed:  &mockEmbedder{},
		rerank: &mockReranker{},
	}
	env.svc = New(env.lex, env.vec, env.embed, env.rerank, indexlock.New(), zap.NewNop(), opts)
	return env
}

func mustRequest(t *testing.T, query string, topK int, alpha float64, rerank bool) *request.Request {
	t.Helper()
	req, err := request.New(query, topK, alpha, rerank)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &req
}

func clause(t *testing.T, clauseID, text string) domain.Clause {
	t.Helper()
	c, err := domain.NewClause("msa-2024", clauseID, "Heading", text, 1, 1, 2, "en", "upload")
	if err != nil {
		t.Fatalf("NewClause: %v", err)
	}
	return c
}

func lexHit(t *testing.T, clauseID string, score float64) search.LexicalHit {
	t.Helper()
	return search.LexicalHit{
		Clause:     clause(t, clauseID, "clause text "+clauseID),
		Score:      score,
		Highlights: []string{"<em>match</em> " + clauseID},
	}
}

func vecHit(t *testing.T, clauseID string, score float64) search.VectorHit {
	t.Helper()
	return search.VectorHit{
		Clause: clause(t, clauseID, "clause text "+clauseID),
		Score:  score,
	}
}
