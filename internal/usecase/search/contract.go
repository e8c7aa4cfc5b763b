package search

import (
	"context"

	domsearch "github.com/kailas-cloud/csvsearch/internal/domain/search"
	"github.com/kailas-cloud/csvsearch/internal/domain/schema"
)

// Repository defines the query contract against one index.
type Repository interface {
	Search(ctx context.Context, index, query string, size int, textFields []string) (*domsearch.Result, error)
	Aggregate(ctx context.Context, index, query, field string, maxBuckets int) ([]domsearch.Bucket, error)
}

// MappingReader reads the stored mapping of an index.
type MappingReader interface {
	Mapping(ctx context.Context, name string) (schema.Mapping, error)
}
