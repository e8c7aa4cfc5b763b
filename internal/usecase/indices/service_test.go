package indices

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/csvsearch/internal/domain"
	domidx "github.com/kailas-cloud/csvsearch/internal/domain/index"
)

// mockRepo implements Repository for tests.
type mockRepo struct {
	listFn   func(ctx context.Context, namePrefix string) ([]domidx.Entry, error)
	metasFn  func(ctx context.Context, namePrefix string) ([]domidx.Meta, error)
	deleteFn func(ctx context.Context, name string) error
	deleted  []string
}

func (m *mockRepo) List(ctx context.Context, namePrefix string) ([]domidx.Entry, error) {
	if m.listFn != nil {
		return m.listFn(ctx, namePrefix)
	}
	return []domidx.Entry{}, nil
}

func (m *mockRepo) Metas(ctx context.Context, namePrefix string) ([]domidx.Meta, error) {
	if m.metasFn != nil {
		return m.metasFn(ctx, namePrefix)
	}
	return nil, nil
}

func (m *mockRepo) Delete(ctx context.Context, name string) error {
	m.deleted = append(m.deleted, name)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, name)
	}
	return nil
}

const testSecret = "reap-secret"

func newTestService(t *testing.T) (*Service, *mockRepo) {
	t.Helper()
	repo := &mockRepo{}
	svc := New(repo, zap.NewNop(), testSecret)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc, repo
}

func TestList_HappyPath(t *testing.T) {
	svc, repo := newTestService(t)

	repo.listFn = func(_ context.Context, namePrefix string) ([]domidx.Entry, error) {
		if namePrefix != "temp-s1-" {
			t.Errorf("unexpected prefix: %s", namePrefix)
		}
		return []domidx.Entry{{Name: "temp-s1-orders", DocCount: 5}}, nil
	}

	entries, err := svc.List(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "temp-s1-orders" {
		t.Errorf("unexpected entries: %v", entries)
	}
}

func TestList_EmptySessionForbidden(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.List(context.Background(), "  ")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestReap_WrongSecret(t *testing.T) {
	svc, repo := newTestService(t)

	_, err := svc.Reap(context.Background(), "wrong")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Error("nothing may be deleted without the secret")
	}
}

func TestReap_DisabledWithoutSecret(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo, zap.NewNop(), "")

	// Even an empty presented secret must not pass when reaping is disabled.
	_, err := svc.Reap(context.Background(), "")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestReap_DeletesOnlyExpired(t *testing.T) {
	svc, repo := newTestService(t)

	now := time.UnixMilli(1700000000000)
	repo.metasFn = func(_ context.Context, namePrefix string) ([]domidx.Meta, error) {
		if namePrefix != "temp-" {
			t.Errorf("unexpected prefix: %s", namePrefix)
		}
		return []domidx.Meta{
			{Name: "temp-s1-old", CreatedAt: now.Add(-2 * time.Hour)},
			{Name: "temp-s1-fresh", CreatedAt: now.Add(-time.Minute)},
			{Name: "temp-s2-old", CreatedAt: now.Add(-90 * time.Minute)},
		}, nil
	}

	rep, err := svc.Reap(context.Background(), testSecret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Scanned != 3 {
		t.Errorf("expected 3 scanned, got %d", rep.Scanned)
	}
	if len(rep.Reaped) != 2 || rep.Reaped[0] != "temp-s1-old" || rep.Reaped[1] != "temp-s2-old" {
		t.Errorf("unexpected reaped: %v", rep.Reaped)
	}
	if len(rep.Failed) != 0 {
		t.Errorf("unexpected failures: %v", rep.Failed)
	}
}

func TestReap_ContinuesPastFailures(t *testing.T) {
	svc, repo := newTestService(t)

	now := time.UnixMilli(1700000000000)
	repo.metasFn = func(_ context.Context, _ string) ([]domidx.Meta, error) {
		return []domidx.Meta{
			{Name: "temp-s1-a", CreatedAt: now.Add(-2 * time.Hour)},
			{Name: "temp-s1-b", CreatedAt: now.Add(-2 * time.Hour)},
		}, nil
	}
	repo.deleteFn = func(_ context.Context, name string) error {
		if name == "temp-s1-a" {
			return errors.New("stuck")
		}
		return nil
	}

	rep, err := svc.Reap(context.Background(), testSecret)
	if err != nil {
		t.Fatalf("one stuck index must not fail the run: %v", err)
	}
	if len(rep.Failed) != 1 || rep.Failed[0] != "temp-s1-a" {
		t.Errorf("unexpected failures: %v", rep.Failed)
	}
	if len(rep.Reaped) != 1 || rep.Reaped[0] != "temp-s1-b" {
		t.Errorf("unexpected reaped: %v", rep.Reaped)
	}
}

func TestReap_Idempotent(t *testing.T) {
	svc, repo := newTestService(t)

	// First run reaped everything; the catalog is now empty.
	repo.metasFn = func(_ context.Context, _ string) ([]domidx.Meta, error) {
		return nil, nil
	}

	rep, err := svc.Reap(context.Background(), testSecret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Scanned != 0 || len(rep.Reaped) != 0 || len(rep.Failed) != 0 {
		t.Errorf("second run must find nothing to do: %+v", rep)
	}
}

func TestReap_CustomMaxAge(t *testing.T) {
	svc, repo := newTestService(t)
	svc.WithMaxAge(10 * time.Minute)

	now := time.UnixMilli(1700000000000)
	repo.metasFn = func(_ context.Context, _ string) ([]domidx.Meta, error) {
		return []domidx.Meta{
			{Name: "temp-s1-orders", CreatedAt: now.Add(-30 * time.Minute)},
		}, nil
	}

	rep, err := svc.Reap(context.Background(), testSecret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rep.Reaped) != 1 {
		t.Errorf("expected reap under shortened age, got %v", rep.Reaped)
	}
}
