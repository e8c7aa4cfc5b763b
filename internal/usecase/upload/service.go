// Package upload implements the CSV ingestion flow: parse, infer a mapping,
// provision a session-scoped index, and bulk-index every row with per-row
// outcome accounting.
package upload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/csvsearch/internal/domain"
	"github.com/kailas-cloud/csvsearch/internal/domain/dataset"
	"github.com/kailas-cloud/csvsearch/internal/domain/report"
	"github.com/kailas-cloud/csvsearch/internal/domain/schema"
	"github.com/kailas-cloud/csvsearch/internal/domain/session"
)

const (
	defaultBatchSize     = 500
	defaultTimeout       = 10 * time.Minute
	defaultProgressEvery = 1000
)

// Result is a completed upload: the backend index it produced, the inferred
// mapping, and the indexing report.
type Result struct {
	Index    string
	Filename string
	Columns  []string
	Mapping  schema.Mapping
	Report   report.Indexing
}

// Service handles CSV upload and indexing.
type Service struct {
	indexes       IndexCreator
	docs          BulkWriter
	log           *zap.Logger
	batchSize     int
	timeout       time.Duration
	progressEvery int
}

// New creates an upload service.
func New(indexes IndexCreator, docs BulkWriter, log *zap.Logger) *Service {
	return &Service{
		indexes:       indexes,
		docs:          docs,
		log:           log,
		batchSize:     defaultBatchSize,
		timeout:       defaultTimeout,
		progressEvery: defaultProgressEvery,
	}
}

// WithBatchSize configures how many rows go into one bulk write.
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// WithTimeout configures the indexing deadline. A run that hits it returns a
// partial report instead of an error.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Upload parses CSV bytes, infers a mapping, replaces the session's index of
// that name, and bulk-indexes every row. Rows that cannot be coerced to the
// inferred mapping or that the backend rejects count as failures; the report
// always accounts for every row.
func (s *Service) Upload(ctx context.Context, sessionID, indexName, filename string, data []byte) (*Result, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".csv") {
		return nil, fmt.Errorf("%w: only .csv files are accepted, got %q", domain.ErrMalformedInput, filename)
	}

	derived, err := session.IndexName(sessionID, indexName)
	if err != nil {
		return nil, err
	}

	ds, err := dataset.Parse(data)
	if err != nil {
		return nil, err
	}

	mapping := schema.Infer(ds)

	if err := s.indexes.Create(ctx, derived, mapping); err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}

	rep, err := s.indexRows(ctx, derived, ds, mapping)
	if err != nil {
		return nil, err
	}

	// Refresh runs on the request context so a partial run still becomes
	// searchable before the response goes out.
	if err := s.docs.Refresh(ctx, derived); err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	s.log.Info("upload indexed",
		zap.String("index", derived),
		zap.Int("total", rep.Total),
		zap.Int("success", rep.Success),
		zap.Int("failed", rep.Failed),
		zap.Bool("partial", rep.Partial),
		zap.Duration("elapsed", rep.Elapsed),
	)

	return &Result{
		Index:    derived,
		Filename: filename,
		Columns:  ds.Columns(),
		Mapping:  mapping,
		Report:   rep,
	}, nil
}

func (s *Service) indexRows(ctx context.Context, index string, ds *dataset.Dataset, mapping schema.Mapping) (report.Indexing, error) {
	bctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	total := ds.NumRows()
	columns := ds.Columns()
	b := report.NewBuilder(total)
	partial := false

	batch := make([]domain.Document, 0, s.batchSize)
	lastProgress := 0

	flush := func() (bool, error) {
		if len(batch) == 0 {
			return false, nil
		}
		errs, err := s.docs.BulkWrite(bctx, index, batch)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return true, nil
			}
			return false, fmt.Errorf("bulk write: %w", err)
		}
		for i, rowErr := range errs {
			if rowErr == nil {
				b.RowIndexed()
				continue
			}
			if errors.Is(rowErr, context.DeadlineExceeded) && ctx.Err() == nil {
				return true, nil
			}
			b.RowFailed(batch[i].Ordinal, rowErr.Error())
		}
		batch = batch[:0]
		return false, nil
	}

	for row := 0; row < total && !partial; row++ {
		if bctx.Err() != nil && ctx.Err() == nil {
			partial = true
			break
		}

		data, err := schema.EncodeRow(mapping, columns, ds.Row(row))
		if err != nil {
			b.RowFailed(row, err.Error())
		} else {
			batch = append(batch, domain.Document{Ordinal: row, Data: data})
			if len(batch) >= s.batchSize {
				if partial, err = flush(); err != nil {
					return report.Indexing{}, err
				}
			}
		}

		if done := b.Attempted(); done-lastProgress >= s.progressEvery {
			lastProgress = done
			s.log.Info("indexing progress",
				zap.String("index", index),
				zap.Int("done", done),
				zap.Int("total", total),
			)
		}
	}

	if !partial {
		var err error
		if partial, err = flush(); err != nil {
			return report.Indexing{}, err
		}
	}

	return b.Finish(partial), nil
}
