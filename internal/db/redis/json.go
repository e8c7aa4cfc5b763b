package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/csvsearch/internal/db"
)

// JSONSet stores a JSON document at the key root.
func (s *Store) JSONSet(ctx context.Context, key string, data []byte) error {
	cmd := s.b().Arbitrary("JSON.SET").Args(key, "$", string(data)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return wrapOp(db.OpJSONSet, err)
	}
	return nil
}

// JSONSetMulti writes all documents in a single DoMulti round-trip and
// reports the outcome per item. errs[i] is nil iff items[i] was accepted;
// one rejected document never blocks the others.
func (s *Store) JSONSetMulti(ctx context.Context, items []db.JSONSetItem) ([]error, error) {
	if len(items) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(items))
	for i, item := range items {
		cmds[i] = s.b().Arbitrary("JSON.SET").Args(item.Key, "$", string(item.Data)).Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	errs := make([]error, len(results))
	for i, res := range results {
		if err := res.Error(); err != nil {
			errs[i] = wrapOp(db.OpJSONSet, fmt.Errorf("key %s: %w", items[i].Key, err))
		}
	}
	return errs, nil
}

// JSONGet returns the JSON document stored at the key root.
func (s *Store) JSONGet(ctx context.Context, key string) ([]byte, error) {
	cmd := s.b().Arbitrary("JSON.GET").Args(key).Build()
	raw, err := s.do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, wrapOp(db.OpJSONGet, err)
	}
	return []byte(raw), nil
}

// JSONGetMulti fetches multiple JSON documents in one DoMulti round-trip.
// Absent keys yield nil entries rather than an error.
func (s *Store) JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Arbitrary("JSON.GET").Args(key).Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	out := make([][]byte, len(results))
	for i, res := range results {
		raw, err := res.ToString()
		if err != nil {
			if rueidis.IsRedisNil(err) {
				continue
			}
			return nil, fmt.Errorf("JSONGetMulti key %s: %w", keys[i], err)
		}
		out[i] = []byte(raw)
	}
	return out, nil
}
