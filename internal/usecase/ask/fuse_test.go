package ask

import (
	"testing"

	"github.com/lawman-hq/clauseidx/internal/domain/search"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		v, lo, hi float64
		want      float64
	}{
		{"min maps to zero", 2, 2, 10, 0},
		{"max maps to one", 10, 2, 10, 1},
		{"midpoint", 6, 2, 10, 0.5},
		{"degenerate range maps to one", 7, 7, 7, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalize(tc.v, tc.lo, tc.hi); got != tc.want {
				t.Errorf("normalize(%f, %f, %f) = %f, want %f", tc.v, tc.lo, tc.hi, got, tc.want)
			}
		})
	}
}

func TestMerge_UnionByKey(t *testing.T) {
	lex := []search.LexicalHit{lexHit(t, "1.1", 10), lexHit(t, "2.2", 5)}
	vec := []search.VectorHit{vecHit(t, "2.2", 0.9), vecHit(t, "3.3", 0.8)}

	cands := merge(lex, vec)
	if len(cands) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(cands))
	}

	byKey := map[string]*candidate{}
	for _, c := range cands {
		byKey[c.clause.Key()] = c
	}

	both := byKey["msa-2024#2.2"]
	if !both.hasLex || !both.hasVec {
		t.Errorf("merged candidate lost a modality: %+v", both)
	}
	if both.rawLex != 5 || both.rawVec != 0.9 {
		t.Errorf("merged candidate has wrong raw scores: %+v", both)
	}
	if len(both.highlights) == 0 {
		t.Error("merged candidate should keep lexical highlights")
	}

	vecOnly := byKey["msa-2024#3.3"]
	if vecOnly.hasLex || !vecOnly.hasVec {
		t.Errorf("vector-only candidate mislabeled: %+v", vecOnly)
	}
}

func TestFuse_MinMaxAndAlpha(t *testing.T) {
	lex := []search.LexicalHit{lexHit(t, "a", 2), lexHit(t, "b", 10)}
	vec := []search.VectorHit{vecHit(t, "a", 0.8), vecHit(t, "b", 0.2)}

	cands := merge(lex, vec)
	fuse(cands, 0.5)

	byKey := map[string]*candidate{}
	for _, c := range cands {
		byKey[c.clause.Key()] = c
	}

	a := byKey["msa-2024#a"]
	if a.lexNorm != 0 || a.vecNorm != 1 {
		t.Errorf("unexpected normalization for a: lex=%f vec=%f", a.lexNorm, a.vecNorm)
	}
	if a.fused != 0.5 {
		t.Errorf("unexpected fused for a: %f", a.fused)
	}

	b := byKey["msa-2024#b"]
	if b.lexNorm != 1 || b.vecNorm != 0 {
		t.Errorf("unexpected normalization for b: lex=%f vec=%f", b.lexNorm, b.vecNorm)
	}
}

func TestFuse_AlphaExtremes(t *testing.T) {
	lex := []search.LexicalHit{lexHit(t, "a", 2), lexHit(t, "b", 10)}
	vec := []search.VectorHit{vecHit(t, "a", 0.8), vecHit(t, "b", 0.2)}

	cands := merge(lex, vec)
	fuse(cands, 1.0)
	for _, c := range cands {
		if c.fused != c.lexNorm {
			t.Errorf("alpha=1 must be pure lexical: %+v", c)
		}
	}

	cands = merge(lex, vec)
	fuse(cands, 0.0)
	for _, c := range cands {
		if c.fused != c.vecNorm {
			t.Errorf("alpha=0 must be pure vector: %+v", c)
		}
	}
}

func TestFuse_SingleHitScoresOne(t *testing.T) {
	cands := merge([]search.LexicalHit{lexHit(t, "only", 3.7)}, nil)
	fuse(cands, 0.5)

	if cands[0].lexNorm != 1 {
		t.Errorf("single lexical hit must normalize to 1, got %f", cands[0].lexNorm)
	}
	if cands[0].fused != 0.5 {
		t.Errorf("unexpected fused: %f", cands[0].fused)
	}
}

func TestFuse_AbsentModalityContributesZero(t *testing.T) {
	lex := []search.LexicalHit{lexHit(t, "a", 2), lexHit(t, "b", 10)}
	vec := []search.VectorHit{vecHit(t, "c", 0.9)}

	cands := merge(lex, vec)
	fuse(cands, 0.5)

	byKey := map[string]*candidate{}
	for _, c := range cands {
		byKey[c.clause.Key()] = c
	}

	if byKey["msa-2024#b"].vecNorm != 0 {
		t.Errorf("lexical-only candidate must have zero vector side")
	}
	if byKey["msa-2024#c"].lexNorm != 0 {
		t.Errorf("vector-only candidate must have zero lexical side")
	}
}

func TestRank_Deterministic(t *testing.T) {
	a := &candidate{clause: clause(t, "a", "t"), fused: 0.5, rawLex: 1}
	b := &candidate{clause: clause(t, "b", "t"), fused: 0.5, rawLex: 1}
	c := &candidate{clause: clause(t, "c", "t"), fused: 0.5, rawLex: 2}
	d := &candidate{clause: clause(t, "d", "t"), fused: 0.9}

	cands := []*candidate{b, c, a, d}
	rank(cands)

	wantOrder := []string{"msa-2024#d", "msa-2024#c", "msa-2024#a", "msa-2024#b"}
	for i, want := range wantOrder {
		if cands[i].clause.Key() != want {
			t.Fatalf("position %d: want %s, got %s", i, want, cands[i].clause.Key())
		}
	}
}
