// Package search holds the domain types a completed search produces.
package search

// Hit is one matched document: its row ordinal, relevance score, the clean
// stored source, and highlighted fragments for the fields the match touched.
type Hit struct {
	ID         int
	Score      float64
	Source     map[string]any
	Highlights map[string]string
}

// Result is a completed search: the total match count on the backend and the
// returned page of hits.
type Result struct {
	Total int
	Hits  []Hit
}

// Bucket is one distinct value of an aggregated field with its document count.
type Bucket struct {
	Value string
	Count int64
}
