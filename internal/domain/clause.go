package domain

import "fmt"

// KeySeparator joins contract and clause identifiers into a global key.
const KeySeparator = "#"

// Clause is the atomic retrievable unit of contract text (immutable value object).
// The (contractID, clauseID) pair is the global primary key across both stores.
type Clause struct {
	contractID string
	clauseID   string
	heading    string
	text       string
	page       int
	lineStart  int
	lineEnd    int
	lang       string
	source     string
}

// NewClause validates and creates a Clause.
// contractID, clauseID and text are required; lineEnd must not precede lineStart.
func NewClause(
	contractID, clauseID, heading, text string,
	page, lineStart, lineEnd int,
	lang, source string,
) (Clause, error) {
	if contractID == "" {
		return Clause{}, fmt.Errorf("%w: contract_id is required", ErrInvalidInput)
	}
	if clauseID == "" {
		return Clause{}, fmt.Errorf("%w: clause_id is required", ErrInvalidInput)
	}
	if text == "" {
		return Clause{}, fmt.Errorf("%w: clause text is required", ErrInvalidInput)
	}
	if lineEnd < lineStart {
		return Clause{}, fmt.Errorf("%w: line_end %d precedes line_start %d", ErrInvalidInput, lineEnd, lineStart)
	}
	if lang == "" {
		lang = "en"
	}

	return Clause{
		contractID: contractID,
		clauseID:   clauseID,
		heading:    heading,
		text:       text,
		page:       page,
		lineStart:  lineStart,
		lineEnd:    lineEnd,
		lang:       lang,
		source:     source,
	}, nil
}

// ReconstructClause creates a Clause without validation (storage hydration).
func ReconstructClause(
	contractID, clauseID, heading, text string,
	page, lineStart, lineEnd int,
	lang, source string,
) Clause {
	return Clause{
		contractID: contractID,
		clauseID:   clauseID,
		heading:    heading,
		text:       text,
		page:       page,
		lineStart:  lineStart,
		lineEnd:    lineEnd,
		lang:       lang,
		source:     source,
	}
}

// Key returns the global primary key "contractID#clauseID".
func (c Clause) Key() string { return c.contractID + KeySeparator + c.clauseID }

// ContractID returns the source document identifier.
func (c Clause) ContractID() string { return c.contractID }

// ClauseID returns the identifier unique within the contract.
func (c Clause) ClauseID() string { return c.clauseID }

// Heading returns the short subject label (may be empty).
func (c Clause) Heading() string { return c.heading }

// Text returns the full clause body.
func (c Clause) Text() string { return c.text }

// Page returns the page provenance anchor.
func (c Clause) Page() int { return c.page }

// LineStart returns the first source line of the clause.
func (c Clause) LineStart() int { return c.lineStart }

// LineEnd returns the last source line of the clause.
func (c Clause) LineEnd() int { return c.lineEnd }

// Lang returns the ISO language code.
func (c Clause) Lang() string { return c.lang }

// Source returns the opaque passthrough origin field set by upstream enrichment.
func (c Clause) Source() string { return c.source }
