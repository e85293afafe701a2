package ask

import (
	"sort"

	"github.com/lawman-hq/clauseidx/internal/domain"
	"github.com/lawman-hq/clauseidx/internal/domain/search"
)

// candidate is a clause seen by one or both retrieval modalities.
type candidate struct {
	clause     domain.Clause
	highlights []string

	rawLex float64
	rawVec float64
	hasLex bool
	hasVec bool

	lexNorm float64
	vecNorm float64
	fused   float64
}

// merge unions the two hit lists by clause key. When a clause appears
// in both, the lexical hit contributes the highlights.
func merge(lex []search.LexicalHit, vec []search.VectorHit) []*candidate {
	byKey := make(map[string]*candidate, len(lex)+len(vec))
	out := make([]*candidate, 0, len(lex)+len(vec))

	for _, h := range lex {
		c := &candidate{
			clause:     h.Clause,
			highlights: h.Highlights,
			rawLex:     h.Score,
			hasLex:     true,
		}
		byKey[h.Clause.Key()] = c
		out = append(out, c)
	}

	for _, h := range vec {
		if c, ok := byKey[h.Clause.Key()]; ok {
			c.rawVec = h.Score
			c.hasVec = true
			continue
		}
		c := &candidate{
			clause: h.Clause,
			rawVec: h.Score,
			hasVec: true,
		}
		byKey[h.Clause.Key()] = c
		out = append(out, c)
	}

	return out
}

// fuse normalizes each modality's scores to [0,1] per query and blends
// them: alpha weighs the lexical side, 1-alpha the vector side. A
// candidate absent from a modality contributes 0 for it.
func fuse(cands []*candidate, alpha float64) {
	lexLo, lexHi, anyLex := scoreRange(cands, func(c *candidate) (float64, bool) { return c.rawLex, c.hasLex })
	vecLo, vecHi, anyVec := scoreRange(cands, func(c *candidate) (float64, bool) { return c.rawVec, c.hasVec })

	for _, c := range cands {
		if c.hasLex && anyLex {
			c.lexNorm = normalize(c.rawLex, lexLo, lexHi)
		}
		if c.hasVec && anyVec {
			c.vecNorm = normalize(c.rawVec, vecLo, vecHi)
		}
		c.fused = alpha*c.lexNorm + (1-alpha)*c.vecNorm
	}
}

// rank orders candidates by fused score desc, breaking ties by raw
// lexical score desc and then clause key asc so results are stable
// across runs.
func rank(cands []*candidate) {
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.fused != b.fused {
			return a.fused > b.fused
		}
		if a.rawLex != b.rawLex {
			return a.rawLex > b.rawLex
		}
		return a.clause.Key() < b.clause.Key()
	})
}

func scoreRange(cands []*candidate, get func(*candidate) (float64, bool)) (lo, hi float64, any bool) {
	for _, c := range cands {
		v, ok := get(c)
		if !ok {
			continue
		}
		if !any {
			lo, hi = v, v
			any = true
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, any
}

// normalize maps v into [0,1] by min-max. A degenerate range (all
// scores equal) maps to 1.0 so a single hit is not zeroed out.
func normalize(v, lo, hi float64) float64 {
	if hi == lo {
		return 1.0
	}
	return (v - lo) / (hi - lo)
}
