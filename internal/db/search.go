package db

// HighlightSpec asks FT.SEARCH to wrap matched terms in tags. Returned
// field values carry the full content with matches tagged.
type HighlightSpec struct {
	Fields   []string // fields to highlight
	OpenTag  string   // highlight open tag, e.g. "<em>"
	CloseTag string   // highlight close tag, e.g. "</em>"
}

// TextQuery is the input for BM25 text search.
type TextQuery struct {
	IndexName    string
	Query        string
	TopK         int
	ReturnFields []string
	Highlight    *HighlightSpec
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
