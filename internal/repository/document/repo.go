// Package document persists indexed rows as JSON documents keyed by their
// ordinal position in the uploaded file.
package document

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/csvsearch/internal/db"
	"github.com/kailas-cloud/csvsearch/internal/domain"
)

// store is the consumer interface for document writes (ISP).
type store interface {
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) ([]error, error)
	WaitIndexed(ctx context.Context, name string) error
}

// Repo implements document persistence for the upload usecase.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// BulkWrite indexes a batch of rows in one pipelined round-trip. errs[i]
// reports the outcome of rows[i]; a rejected row never blocks the rest of
// the batch.
func (r *Repo) BulkWrite(ctx context.Context, index string, rows []domain.Document) ([]error, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	items := make([]db.JSONSetItem, len(rows))
	for i, row := range rows {
		items[i] = db.JSONSetItem{Key: docKey(index, row.Ordinal), Data: row.Data}
	}

	errs, err := r.store.JSONSetMulti(ctx, items)
	if err != nil {
		return nil, wrapDB(fmt.Sprintf("bulk write %s", index), err)
	}
	return errs, nil
}

// Refresh blocks until everything written to the index is searchable.
func (r *Repo) Refresh(ctx context.Context, index string) error {
	if err := r.store.WaitIndexed(ctx, index); err != nil {
		return wrapDB(fmt.Sprintf("refresh %s", index), err)
	}
	return nil
}

func docKey(index string, ordinal int) string {
	return docPrefix(index) + strconv.Itoa(ordinal)
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
