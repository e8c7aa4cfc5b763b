// Package index persists index lifecycle state: the FT index itself plus a
// metadata hash carrying the inferred mapping and creation time.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kailas-cloud/csvsearch/internal/db"
	"github.com/kailas-cloud/csvsearch/internal/domain"
	domidx "github.com/kailas-cloud/csvsearch/internal/domain/index"
	"github.com/kailas-cloud/csvsearch/internal/domain/schema"
)

// store is the consumer interface for index lifecycle (ISP).
//
//nolint:interfacebloat // index repo needs hash metadata + index management operations
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, dropDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	IndexInfo(ctx context.Context, name string) (db.IndexInfo, error)
}

// Repo implements index lifecycle repositories for the upload, indices and
// maintenance usecases.
type Repo struct {
	store store
	now   func() time.Time
}

// New creates an index repository.
func New(s store) *Repo {
	return &Repo{store: s, now: time.Now}
}

// Create provisions a fresh index for the mapping. A pre-existing index with
// the same name is dropped first, documents included, so a re-upload always
// replaces rather than merges.
func (r *Repo) Create(ctx context.Context, name string, mapping schema.Mapping) error {
	if err := r.Delete(ctx, name); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}

	def, err := buildIndex(name, mapping)
	if err != nil {
		return fmt.Errorf("build index %s: %w", name, err)
	}

	meta, err := metaToHash(domidx.Meta{Name: name, Mapping: mapping, CreatedAt: r.now()})
	if err != nil {
		return fmt.Errorf("encode meta %s: %w", name, err)
	}

	// Step 1: HSET metadata
	if err := r.store.HSet(ctx, metaKey(name), meta); err != nil {
		return wrapDB(fmt.Sprintf("hset meta %s", name), err)
	}

	// FT.CREATE -- rollback HSET on error
	if err := r.store.CreateIndex(ctx, def); err != nil {
		cleanupErr := r.store.Del(ctx, metaKey(name))
		return errors.Join(wrapDB(fmt.Sprintf("create index %s", name), err), cleanupErr)
	}

	return nil
}

// Meta returns the stored mapping and creation time of an index.
func (r *Repo) Meta(ctx context.Context, name string) (domidx.Meta, error) {
	h, err := r.store.HGetAll(ctx, metaKey(name))
	if err != nil {
		return domidx.Meta{}, wrapDB(fmt.Sprintf("hgetall meta %s", name), err)
	}
	if len(h) == 0 {
		return domidx.Meta{}, fmt.Errorf("index %s: %w", name, domain.ErrIndexNotFound)
	}
	return metaFromHash(h)
}

// Mapping returns the stored mapping of an index.
func (r *Repo) Mapping(ctx context.Context, name string) (schema.Mapping, error) {
	m, err := r.Meta(ctx, name)
	if err != nil {
		return nil, err
	}
	return m.Mapping, nil
}

// Metas returns stored metadata for every index whose name starts with
// namePrefix, sorted by creation time.
func (r *Repo) Metas(ctx context.Context, namePrefix string) ([]domidx.Meta, error) {
	keys, err := r.store.Scan(ctx, metaKey(namePrefix+"*"))
	if err != nil {
		return nil, wrapDB("scan meta", err)
	}
	if len(keys) == 0 {
		return []domidx.Meta{}, nil
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, wrapDB("hgetall multi meta", err)
	}

	metas := make([]domidx.Meta, 0, len(hashes))
	for i, h := range hashes {
		if len(h) == 0 {
			continue
		}
		m, err := metaFromHash(h)
		if err != nil {
			return nil, fmt.Errorf("parse meta %s: %w", keys[i], err)
		}
		metas = append(metas, m)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.Before(metas[j].CreatedAt)
	})

	return metas, nil
}

// List returns indexes matching namePrefix annotated with live document
// counts and sizes. An index whose FT half is already gone still lists from
// its metadata, with zero counts.
func (r *Repo) List(ctx context.Context, namePrefix string) ([]domidx.Entry, error) {
	metas, err := r.Metas(ctx, namePrefix)
	if err != nil {
		return nil, err
	}

	entries := make([]domidx.Entry, 0, len(metas))
	for _, m := range metas {
		e := domidx.Entry{Name: m.Name, CreatedAt: m.CreatedAt}
		info, err := r.store.IndexInfo(ctx, m.Name)
		switch {
		case err == nil:
			e.DocCount = info.NumDocs
			e.SizeBytes = info.SizeBytes
		case errors.Is(err, db.ErrIndexNotFound):
		default:
			return nil, wrapDB(fmt.Sprintf("info %s", m.Name), err)
		}
		entries = append(entries, e)
	}

	return entries, nil
}

// Exists reports whether the FT index is present on the backend.
func (r *Repo) Exists(ctx context.Context, name string) (bool, error) {
	ok, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return false, wrapDB(fmt.Sprintf("exists %s", name), err)
	}
	return ok, nil
}

// Delete removes an index, its documents, and its metadata. Deleting an
// absent index is a no-op, which keeps reaping idempotent.
func (r *Repo) Delete(ctx context.Context, name string) error {
	if err := r.store.DropIndex(ctx, name, true); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return wrapDB(fmt.Sprintf("drop index %s", name), err)
	}
	if err := r.store.Del(ctx, metaKey(name)); err != nil {
		return wrapDB(fmt.Sprintf("del meta %s", name), err)
	}
	return nil
}

// wrapDB maps store-level failures onto the domain error taxonomy: transport
// failures mean the backend is unavailable, everything else is a backend
// fault the caller did not cause.
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
