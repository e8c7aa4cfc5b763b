package indices

import (
	"context"

	domidx "github.com/kailas-cloud/csvsearch/internal/domain/index"
)

// Repository defines the index catalog contract.
type Repository interface {
	List(ctx context.Context, namePrefix string) ([]domidx.Entry, error)
	Metas(ctx context.Context, namePrefix string) ([]domidx.Meta, error)
	Delete(ctx context.Context, name string) error
}
