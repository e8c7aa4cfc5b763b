// Package indices implements the index catalog: session-scoped listing and
// the secret-gated reaper that removes expired temporary indices.
package indices

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/csvsearch/internal/domain"
	domidx "github.com/kailas-cloud/csvsearch/internal/domain/index"
	"github.com/kailas-cloud/csvsearch/internal/domain/session"
)

// DefaultMaxAge is how long a temporary index lives before the reaper may
// remove it.
const DefaultMaxAge = time.Hour

// ReapReport summarizes one reaper run.
type ReapReport struct {
	Scanned int
	Reaped  []string
	// Failed lists indices whose deletion errored; the run continues past
	// them so one stuck index cannot shield the rest.
	Failed []string
}

// Service handles index listing and reaping.
type Service struct {
	repo   Repository
	log    *zap.Logger
	secret string
	maxAge time.Duration
	now    func() time.Time
}

// New creates an indices service. An empty secret disables reaping.
func New(repo Repository, log *zap.Logger, secret string) *Service {
	return &Service{
		repo:   repo,
		log:    log,
		secret: secret,
		maxAge: DefaultMaxAge,
		now:    time.Now,
	}
}

// WithMaxAge configures the reaper's age threshold.
func (s *Service) WithMaxAge(d time.Duration) *Service {
	if d > 0 {
		s.maxAge = d
	}
	return s
}

// List returns the session's indices, oldest first.
func (s *Service) List(ctx context.Context, sessionID string) ([]domidx.Entry, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session id is empty: %w", domain.ErrForbidden)
	}

	entries, err := s.repo.List(ctx, session.Prefix(sessionID))
	if err != nil {
		return nil, fmt.Errorf("list indices: %w", err)
	}
	return entries, nil
}

// Reap deletes every temporary index older than the configured age. The
// secret comparison is constant-time. Reaping is idempotent: a second run
// over the same state finds nothing to do.
func (s *Service) Reap(ctx context.Context, secret string) (ReapReport, error) {
	if s.secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(s.secret)) != 1 {
		return ReapReport{}, domain.ErrUnauthorized
	}

	metas, err := s.repo.Metas(ctx, domain.TempIndexPrefix)
	if err != nil {
		return ReapReport{}, fmt.Errorf("scan indices: %w", err)
	}

	cutoff := s.now().Add(-s.maxAge)
	rep := ReapReport{Scanned: len(metas)}

	for _, m := range metas {
		if !m.CreatedAt.Before(cutoff) {
			continue
		}
		if err := s.repo.Delete(ctx, m.Name); err != nil {
			s.log.Warn("reap failed", zap.String("index", m.Name), zap.Error(err))
			rep.Failed = append(rep.Failed, m.Name)
			continue
		}
		rep.Reaped = append(rep.Reaped, m.Name)
	}

	s.log.Info("reap finished",
		zap.Int("scanned", rep.Scanned),
		zap.Int("reaped", len(rep.Reaped)),
		zap.Int("failed", len(rep.Failed)),
	)

	return rep, nil
}
