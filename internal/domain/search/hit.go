// Package search holds shared search-domain types used by both
// retrieval backends and the query engine.
package search

import "github.com/lawman-hq/clauseidx/internal/domain"

// LexicalHit is a single BM25 match from the lexical index.
type LexicalHit struct {
	Clause     domain.Clause
	Score      float64
	Highlights []string
}

// VectorHit is a single similarity match from the vector collection.
type VectorHit struct {
	Clause domain.Clause
	Score  float64
}
