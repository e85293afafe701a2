package domain

import "fmt"

// Ingestion stage names recorded on batch failures.
const (
	StageEmbed   = "embed"
	StageLexical = "lexical"
	StageVector  = "vector"
)

// BatchFailure describes one ingestion batch that did not fully commit to
// both stores after retries were exhausted.
type BatchFailure struct {
	Offset int    // index of the first clause of the batch in the deduplicated input
	Count  int    // number of clauses in the batch
	Stage  string // stage that failed: embed, lexical, vector
	Err    error
}

func (f BatchFailure) Error() string {
	return fmt.Sprintf("batch at %d (%d clauses) failed during %s: %v", f.Offset, f.Count, f.Stage, f.Err)
}

func (f BatchFailure) Unwrap() error { return f.Err }

// IngestReport summarizes one ingestion run. IndexedCount counts only clauses
// that fully committed to both the lexical index and the vector collection.
type IngestReport struct {
	IndexName      string
	CollectionName string
	IndexedCount   int
	Reset          bool
	Failures       []BatchFailure
}

// Partial reports whether any batch failed.
func (r *IngestReport) Partial() bool { return len(r.Failures) > 0 }
