// Package search implements session-scoped querying: ownership enforcement,
// fuzzy full-text search with highlighting, and optional value aggregation.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/csvsearch/internal/domain"
	domsearch "github.com/kailas-cloud/csvsearch/internal/domain/search"
	"github.com/kailas-cloud/csvsearch/internal/domain/schema"
	"github.com/kailas-cloud/csvsearch/internal/domain/session"
)

const (
	defaultSize       = 10
	maxSize           = 100
	defaultMaxBuckets = 10
)

// Query is one search request against a session's index.
type Query struct {
	Index string
	Query string
	Size  int
	// AggField optionally buckets matches by one column's distinct values.
	AggField   string
	MaxBuckets int
}

// ResultSet is the assembled answer to a Query.
type ResultSet struct {
	Query    string
	Total    int
	Returned int
	TookMS   int64
	Hits     []domsearch.Hit
	// Buckets is nil unless an AggField was requested; an unknown field
	// yields an empty, non-nil slice.
	Buckets []domsearch.Bucket
}

// Service handles search queries.
type Service struct {
	repo        Repository
	indexes     MappingReader
	defaultSize int
	maxSize     int
	maxBuckets  int
}

// New creates a search service.
func New(repo Repository, indexes MappingReader) *Service {
	return &Service{
		repo:        repo,
		indexes:     indexes,
		defaultSize: defaultSize,
		maxSize:     maxSize,
		maxBuckets:  defaultMaxBuckets,
	}
}

// WithLimits configures the default and maximum result page sizes and the
// aggregation bucket cap.
func (s *Service) WithLimits(defaultSize, maxSize, maxBuckets int) *Service {
	if defaultSize > 0 {
		s.defaultSize = defaultSize
	}
	if maxSize > 0 {
		s.maxSize = maxSize
	}
	if maxBuckets > 0 {
		s.maxBuckets = maxBuckets
	}
	return s
}

// Search runs a fuzzy query against one of the session's indices. The index
// must belong to the session; ownership is checked before the backend is
// touched so a foreign index name never leaks existence information.
func (s *Service) Search(ctx context.Context, sessionID string, q Query) (*ResultSet, error) {
	query := strings.TrimSpace(q.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidQuery)
	}

	if !session.Owns(sessionID, q.Index) {
		return nil, fmt.Errorf("index %s: %w", q.Index, domain.ErrForbidden)
	}

	mapping, err := s.indexes.Mapping(ctx, q.Index)
	if err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}

	size := q.Size
	switch {
	case size <= 0:
		size = s.defaultSize
	case size > s.maxSize:
		size = s.maxSize
	}

	start := time.Now()

	result, err := s.repo.Search(ctx, q.Index, query, size, textFields(mapping))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	rs := &ResultSet{
		Query:    query,
		Total:    result.Total,
		Returned: len(result.Hits),
		Hits:     result.Hits,
	}

	if q.AggField != "" {
		buckets, err := s.aggregate(ctx, q, mapping, query)
		if err != nil {
			return nil, err
		}
		rs.Buckets = buckets
	}

	rs.TookMS = time.Since(start).Milliseconds()
	return rs, nil
}

// aggregate resolves the user-facing column name onto the index attribute
// that buckets cleanly: text columns aggregate on their keyword companion,
// numeric and date columns on themselves. A column the mapping does not know
// yields empty buckets rather than a backend error.
func (s *Service) aggregate(ctx context.Context, q Query, mapping schema.Mapping, query string) ([]domsearch.Bucket, error) {
	typ, ok := mapping.Type(q.AggField)
	if !ok {
		return []domsearch.Bucket{}, nil
	}

	field := q.AggField
	if typ == schema.Text {
		field = schema.KeywordAlias(q.AggField)
	}

	maxBuckets := q.MaxBuckets
	if maxBuckets <= 0 || maxBuckets > s.maxBuckets {
		maxBuckets = s.maxBuckets
	}

	buckets, err := s.repo.Aggregate(ctx, q.Index, query, field, maxBuckets)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	if buckets == nil {
		buckets = []domsearch.Bucket{}
	}
	return buckets, nil
}

// textFields lists the columns highlighting applies to. Only text columns
// carry a TEXT attribute the highlighter can mark up.
func textFields(m schema.Mapping) []string {
	var out []string
	for _, f := range m {
		if f.Type == schema.Text {
			out = append(out, f.Name)
		}
	}
	return out
}
