package upload

import (
	"context"

	"github.com/kailas-cloud/csvsearch/internal/domain"
	"github.com/kailas-cloud/csvsearch/internal/domain/schema"
)

// IndexCreator provisions a fresh index for an inferred mapping, replacing
// any index of the same name.
type IndexCreator interface {
	Create(ctx context.Context, name string, mapping schema.Mapping) error
}

// BulkWriter persists encoded rows with per-row outcome reporting.
type BulkWriter interface {
	BulkWrite(ctx context.Context, index string, rows []domain.Document) ([]error, error)
	// Refresh blocks until everything written is searchable.
	Refresh(ctx context.Context, index string) error
}
