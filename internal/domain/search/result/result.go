package result

import "github.com/lawman-hq/clauseidx/internal/domain"

// Result is a single ranked hit from a hybrid query. Lexical and vector
// scores are min-max normalized over the candidates of the query that
// produced them; the raw lexical score is kept for deterministic tie-breaks.
type Result struct {
	clause      domain.Clause
	snippet     string
	highlights  []string
	lexScore    float64
	vecScore    float64
	rawLexical  float64
	fusedScore  float64
	rerankScore float64
	reranked    bool
}

// New creates a search result.
func New(
	clause domain.Clause, snippet string, highlights []string,
	lexScore, vecScore, rawLexical, fusedScore float64,
) Result {
	return Result{
		clause: clause, snippet: snippet, highlights: highlights,
		lexScore: lexScore, vecScore: vecScore,
		rawLexical: rawLexical, fusedScore: fusedScore,
	}
}

// WithRerankScore returns a copy carrying a cross-encoder relevance score.
func (r Result) WithRerankScore(score float64) Result {
	r.rerankScore = score
	r.reranked = true
	return r
}

// Clause returns the matched clause.
func (r *Result) Clause() domain.Clause { return r.clause }

// Snippet returns the highlighted preview text.
func (r *Result) Snippet() string { return r.snippet }

// Highlights returns the highlighted fragments from the lexical backend.
func (r *Result) Highlights() []string { return r.highlights }

// LexicalScore returns the normalized lexical score.
func (r *Result) LexicalScore() float64 { return r.lexScore }

// VectorScore returns the normalized vector similarity score.
func (r *Result) VectorScore() float64 { return r.vecScore }

// RawLexicalScore returns the backend BM25 score before normalization.
func (r *Result) RawLexicalScore() float64 { return r.rawLexical }

// FusedScore returns the alpha-weighted combination of the normalized scores.
func (r *Result) FusedScore() float64 { return r.fusedScore }

// RerankScore returns the cross-encoder score and whether one was assigned.
func (r *Result) RerankScore() (float64, bool) { return r.rerankScore, r.reranked }
