package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/csvsearch/internal/db"
)

// CreateIndex creates an FT index ON JSON from the given definition.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := buildCreateArgs(def)
	if err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return wrapOp(db.OpCreateIndex, err)
	}
	return nil
}

// DropIndex removes an FT index by name. With dropDocs the indexed documents
// are deleted along with it.
func (s *Store) DropIndex(ctx context.Context, name string, dropDocs bool) error {
	args := []string{name}
	if dropDocs {
		args = append(args, "DD")
	}
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isUnknownIndexErr(err) {
			return db.ErrIndexNotFound
		}
		return wrapOp(db.OpDropIndex, err)
	}
	return nil
}

// IndexExists probes index existence via FT.INFO; "unknown index name" means absent.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isUnknownIndexErr(err) {
			return false, nil
		}
		return false, wrapOp(db.OpIndexInfo, err)
	}
	return true, nil
}

// IndexInfo reads document count, approximate size, and indexing state via FT.INFO.
func (s *Store) IndexInfo(ctx context.Context, name string) (db.IndexInfo, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isUnknownIndexErr(err) {
			return db.IndexInfo{}, db.ErrIndexNotFound
		}
		return db.IndexInfo{}, wrapOp(db.OpIndexInfo, err)
	}
	return parseIndexInfo(raw), nil
}

// WaitIndexed polls FT.INFO until the index reports no pending indexing work.
// Fresh writes are indexed synchronously; this covers the background scan an
// index performs over keys that already match its prefix.
func (s *Store) WaitIndexed(ctx context.Context, name string) error {
	for {
		info, err := s.IndexInfo(ctx, name)
		if err != nil {
			return err
		}
		if !info.Indexing {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func isUnknownIndexErr(err error) bool {
	// Error text differs across RediSearch versions.
	return isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index")
}

func buildCreateArgs(idx *db.IndexDefinition) ([]string, error) {
	if err := idx.Validate(); err != nil {
		return nil, err
	}

	args := []string{idx.Name, "ON", "JSON"}

	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}

	args = append(args, "SCHEMA")

	for i := range idx.Fields {
		fieldArgs, err := buildFieldArgs(&idx.Fields[i])
		if err != nil {
			return nil, err
		}
		args = append(args, fieldArgs...)
	}

	return args, nil
}

func buildFieldArgs(f *db.IndexField) ([]string, error) {
	args := []string{f.Path, "AS", f.Alias}

	switch f.Type {
	case db.IndexFieldNumeric:
		args = append(args, "NUMERIC")
	case db.IndexFieldText:
		args = append(args, "TEXT")
	case db.IndexFieldTag:
		args = append(args, "TAG")
	default:
		return nil, errors.New("unknown field type")
	}

	return args, nil
}

func parseIndexInfo(raw []rueidis.RedisMessage) db.IndexInfo {
	var info db.IndexInfo
	var sizeMB float64

	for i := 0; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		switch key {
		case "num_docs":
			if n, err := raw[i+1].AsInt64(); err == nil {
				info.NumDocs = n
			} else if s, err := raw[i+1].ToString(); err == nil {
				if n, err := strconv.ParseInt(s, 10, 64); err == nil {
					info.NumDocs = n
				}
			}
		case "indexing":
			if n, err := raw[i+1].AsInt64(); err == nil {
				info.Indexing = n != 0
			} else if s, err := raw[i+1].ToString(); err == nil {
				info.Indexing = s != "0"
			}
		case "inverted_sz_mb", "doc_table_size_mb", "key_table_size_mb", "sortable_values_size_mb":
			if s, err := raw[i+1].ToString(); err == nil {
				if f, err := strconv.ParseFloat(s, 64); err == nil {
					sizeMB += f
				}
			}
		}
	}

	info.SizeBytes = int64(sizeMB * 1024 * 1024)
	return info
}
