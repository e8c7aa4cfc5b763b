package db

// TextQuery is the input for a fuzzy full-text search.
type TextQuery struct {
	IndexName string
	// Query is the raw user text; the driver tokenizes, escapes, and applies
	// length-scaled fuzziness before sending it to the backend.
	Query string
	Size  int
	Fuzzy bool
	// HighlightFields selects the attributes highlighting is applied to.
	// Empty means no highlighting.
	HighlightFields []string
	HighlightOpen   string
	HighlightClose  string
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key   string
	Score float64
	// Fields holds the returned attribute values with highlight markup
	// applied where the query matched.
	Fields map[string]string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// AggQuery is the input for a term-frequency aggregation scoped to a query.
type AggQuery struct {
	IndexName string
	Query     string
	Fuzzy     bool
	// Field is the attribute to bucket distinct values of.
	Field string
	// MaxBuckets caps the number of returned buckets (highest counts first).
	MaxBuckets int
}

// AggBucket is one distinct value with its document count.
type AggBucket struct {
	Value string
	Count int64
}
