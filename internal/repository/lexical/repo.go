// Package lexical implements clause storage and BM25 retrieval over a
// RediSearch full-text index.
package lexical

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/lawman-hq/clauseidx/internal/db"
	"github.com/lawman-hq/clauseidx/internal/domain"
	"github.com/lawman-hq/clauseidx/internal/domain/search"
)

// KeyPrefix namespaces clause hash keys in Redis.
const KeyPrefix = "clause:"

const headingWeight = 2.0

var clauseFields = []string{
	"contract_id", "clause_id", "heading", "text",
	"page", "line_start", "line_end", "lang", "source",
}

// store is the consumer interface for lexical operations (ISP).
type store interface {
	db.HashStore
	db.IndexManager
	db.Searcher
}

// Repo implements lexical index management and search.
type Repo struct {
	store store
}

// New creates a lexical repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// EnsureIndex creates the FT index for name if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context, name string) error {
	if !db.IsValidIdentifier(name) {
		return fmt.Errorf("%w: invalid index name %q", domain.ErrInvalidInput, name)
	}

	def := &db.IndexDefinition{
		Name:        name,
		StorageType: db.StorageHash,
		Prefixes:    []string{keyPrefix(name)},
		Fields: []db.IndexField{
			{Name: "heading", Type: db.IndexFieldText, TextWeight: headingWeight},
			{Name: "text", Type: db.IndexFieldText},
			{Name: "contract_id", Type: db.IndexFieldTag},
			{Name: "clause_id", Type: db.IndexFieldTag},
			{Name: "lang", Type: db.IndexFieldTag},
			{Name: "source", Type: db.IndexFieldTag},
			{Name: "page", Type: db.IndexFieldNumeric},
			{Name: "line_start", Type: db.IndexFieldNumeric},
			{Name: "line_end", Type: db.IndexFieldNumeric},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// DeleteIndex drops the FT index together with its documents and sweeps
// any hashes left under the key prefix.
func (r *Repo) DeleteIndex(ctx context.Context, name string) error {
	if err := r.store.DropIndex(ctx, name, true); err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return fmt.Errorf("index %s: %w", name, domain.ErrIndexNotFound)
		}
		return fmt.Errorf("drop index %s: %w", name, err)
	}

	leftover, err := r.store.Scan(ctx, keyPrefix(name)+"*")
	if err != nil {
		return fmt.Errorf("scan leftovers %s: %w", name, err)
	}
	if err := r.store.DelMulti(ctx, leftover); err != nil {
		return fmt.Errorf("delete leftovers %s: %w", name, err)
	}
	return nil
}

// Exists reports whether the FT index exists.
func (r *Repo) Exists(ctx context.Context, name string) (bool, error) {
	ok, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("index exists %s: %w", name, err)
	}
	return ok, nil
}

// Count returns the number of indexed clauses.
func (r *Repo) Count(ctx context.Context, name string) (int, error) {
	n, err := r.store.SearchCount(ctx, name, "*")
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, fmt.Errorf("index %s: %w", name, domain.ErrIndexNotFound)
		}
		return 0, fmt.Errorf("count %s: %w", name, err)
	}
	return n, nil
}

// IndexClauses writes clauses as hashes under the index key prefix.
func (r *Repo) IndexClauses(ctx context.Context, name string, clauses []domain.Clause) error {
	if len(clauses) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(clauses))
	for i, c := range clauses {
		items[i] = db.HashSetItem{
			Key:    docKey(name, c.Key()),
			Fields: clauseToFields(c),
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("index clauses %s: %w", name, err)
	}
	return nil
}

// DeleteClauses removes clause hashes by clause key.
func (r *Repo) DeleteClauses(ctx context.Context, name string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	docKeys := make([]string, len(keys))
	for i, k := range keys {
		docKeys[i] = docKey(name, k)
	}

	if err := r.store.DelMulti(ctx, docKeys); err != nil {
		return fmt.Errorf("delete clauses %s: %w", name, err)
	}
	return nil
}

// Search runs a BM25 query and parses hits back into clauses. Matched
// terms in heading and text are tagged for fragment extraction.
func (r *Repo) Search(ctx context.Context, name, query string, topK int) ([]search.LexicalHit, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", domain.ErrInvalidInput)
	}

	q := &db.TextQuery{
		IndexName:    name,
		Query:        query,
		TopK:         topK,
		ReturnFields: clauseFields,
		Highlight: &db.HighlightSpec{
			Fields:   []string{"heading", "text"},
			OpenTag:  highlightOpen,
			CloseTag: highlightClose,
		},
	}

	sr, err := r.store.SearchBM25(ctx, q)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, fmt.Errorf("index %s: %w", name, domain.ErrIndexNotFound)
		}
		return nil, fmt.Errorf("search %s: %w", name, err)
	}

	hits := make([]search.LexicalHit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		clause, err := clauseFromFields(entry.Fields)
		if err != nil {
			return nil, fmt.Errorf("parse hit %s: %w", entry.Key, err)
		}

		hits = append(hits, search.LexicalHit{
			Clause:     clause,
			Score:      entry.Score,
			Highlights: extractFragments(entry.Fields["text"]),
		})
	}

	return hits, nil
}

func keyPrefix(index string) string {
	return KeyPrefix + index + ":"
}

func docKey(index, clauseKey string) string {
	return keyPrefix(index) + clauseKey
}

func clauseToFields(c domain.Clause) map[string]string {
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

func clauseFromFields(fields map[string]string) (domain.Clause, error) {
	page, err := atoiOrZero(fields["page"])
	if err != nil {
		return domain.Clause{}, fmt.Errorf("page: %w", err)
	}
	lineStart, err := atoiOrZero(fields["line_start"])
	if err != nil {
		return domain.Clause{}, fmt.Errorf("line_start: %w", err)
	}
	lineEnd, err := atoiOrZero(fields["line_end"])
	if err != nil {
		return domain.Clause{}, fmt.Errorf("line_end: %w", err)
	}

	return domain.ReconstructClause(
		fields["contract_id"],
		fields["clause_id"],
		stripTags(fields["heading"]),
		stripTags(fields["text"]),
		page,
		lineStart,
		lineEnd,
		fields["lang"],
		fields["source"],
	), nil
}

func atoiOrZero(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
