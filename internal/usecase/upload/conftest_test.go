package upload

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/csvsearch/internal/domain"
	"github.com/kailas-cloud/csvsearch/internal/domain/schema"
)

// mockIndexCreator implements IndexCreator for tests.
type mockIndexCreator struct {
	createFn func(ctx context.Context, name string, mapping schema.Mapping) error
	created  []string
}

func (m *mockIndexCreator) Create(ctx context.Context, name string, mapping schema.Mapping) error {
	m.created = append(m.created, name)
	if m.createFn != nil {
		return m.createFn(ctx, name, mapping)
	}
	return nil
}

// mockBulkWriter implements BulkWriter for tests.
type mockBulkWriter struct {
	bulkWriteFn func(ctx context.Context, index string, rows []domain.Document) ([]error, error)
	refreshFn   func(ctx context.Context, index string) error
	written     []domain.Document
	refreshed   []string
}

func (m *mockBulkWriter) BulkWrite(ctx context.Context, index string, rows []domain.Document) ([]error, error) {
	m.written = append(m.written, rows...)
	if m.bulkWriteFn != nil {
		return m.bulkWriteFn(ctx, index, rows)
	}
	return make([]error, len(rows)), nil
}

func (m *mockBulkWriter) Refresh(ctx context.Context, index string) error {
	m.refreshed = append(m.refreshed, index)
	if m.refreshFn != nil {
		return m.refreshFn(ctx, index)
	}
	return nil
}

func newTestService(t *testing.T) (*Service, *mockIndexCreator, *mockBulkWriter) {
	t.Helper()
	idx := &mockIndexCreator{}
	docs := &mockBulkWriter{}
	svc := New(idx, docs, zap.NewNop())
	return svc, idx, docs
}
