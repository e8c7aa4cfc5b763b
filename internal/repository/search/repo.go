// Package search runs fuzzy full-text queries and value aggregations against
// an index and hydrates hits with their clean stored sources.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/csvsearch/internal/db"
	"github.com/kailas-cloud/csvsearch/internal/domain"
	domsearch "github.com/kailas-cloud/csvsearch/internal/domain/search"
)

// Highlight tags wrapped around matched terms in returned field values.
const (
	highlightOpen  = "<em>"
	highlightClose = "</em>"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	Search(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	Aggregate(ctx context.Context, q *db.AggQuery) ([]db.AggBucket, error)
	JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error)
}

// Repo implements usecase/search.Repository.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Search runs a fuzzy any-term query over the given text fields. Highlighted
// values come back from the index, but hit sources are re-fetched from
// storage so markup never leaks into them.
func (r *Repo) Search(ctx context.Context, index, query string, size int, textFields []string) (*domsearch.Result, error) {
	sr, err := r.store.Search(ctx, &db.TextQuery{
		IndexName:       index,
		Query:           query,
		Size:            size,
		Fuzzy:           true,
		HighlightFields: textFields,
		HighlightOpen:   highlightOpen,
		HighlightClose:  highlightClose,
	})
	if err != nil {
		return nil, wrapDB(fmt.Sprintf("search %s", index), err)
	}
	if sr.Total == 0 {
		return &domsearch.Result{Total: 0, Hits: []domsearch.Hit{}}, nil
	}

	keys := make([]string, len(sr.Entries))
	for i, e := range sr.Entries {
		keys[i] = e.Key
	}
	sources, err := r.store.JSONGetMulti(ctx, keys)
	if err != nil {
		return nil, wrapDB(fmt.Sprintf("fetch sources %s", index), err)
	}

	prefix := docPrefix(index)
	hits := make([]domsearch.Hit, 0, len(sr.Entries))
	for i, entry := range sr.Entries {
		id, err := strconv.Atoi(strings.TrimPrefix(entry.Key, prefix))
		if err != nil {
			continue
		}

		var source map[string]any
		if i < len(sources) && sources[i] != nil {
			if err := json.Unmarshal(sources[i], &source); err != nil {
				return nil, fmt.Errorf("decode source %s: %w", entry.Key, err)
			}
		}

		hits = append(hits, domsearch.Hit{
			ID:         id,
			Score:      entry.Score,
			Source:     source,
			Highlights: extractHighlights(entry.Fields),
		})
	}

	return &domsearch.Result{Total: sr.Total, Hits: hits}, nil
}

// Aggregate buckets the distinct values of one index attribute among
// documents matching the query, most frequent first.
func (r *Repo) Aggregate(ctx context.Context, index, query, field string, maxBuckets int) ([]domsearch.Bucket, error) {
	raw, err := r.store.Aggregate(ctx, &db.AggQuery{
		IndexName:  index,
		Query:      query,
		Fuzzy:      true,
		Field:      field,
		MaxBuckets: maxBuckets,
	})
	if err != nil {
		return nil, wrapDB(fmt.Sprintf("aggregate %s.%s", index, field), err)
	}

	buckets := make([]domsearch.Bucket, len(raw))
	for i, b := range raw {
		buckets[i] = domsearch.Bucket{Value: b.Value, Count: b.Count}
	}
	return buckets, nil
}

// extractHighlights keeps only fields where the highlighter actually wrapped
// a match; untouched fields come back verbatim and carry no signal.
func extractHighlights(fields map[string]string) map[string]string {
	var out map[string]string
	for name, value := range fields {
		if !strings.Contains(value, highlightOpen) {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[name] = value
	}
	return out
}

func docPrefix(index string) string {
	return fmt.Sprintf("%sdoc:%s:", domain.KeyPrefix, index)
}

func wrapDB(op string, err error) error {
	switch {
	case errors.Is(err, db.ErrUnreachable):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrBackendUnavailable, err)
	case errors.Is(err, db.ErrIndexNotFound):
		return fmt.Errorf("%s: %w", op, domain.ErrIndexNotFound)
	default:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrSearchBackend, err)
	}
}
