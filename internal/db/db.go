package db

import (
	"context"
	"time"
)

// Store is the search-backend facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	JSONStore
	HashStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// JSONSetItem holds a single key+data pair for a pipelined JSON.SET.
type JSONSetItem struct {
	Key  string
	Data []byte
}

// JSONStore provides JSON document operations. Documents are stored as JSON
// so that null fields stay explicit nulls on the way in and out.
type JSONStore interface {
	JSONSet(ctx context.Context, key string, data []byte) error
	// JSONSetMulti writes all items in one pipelined round-trip and reports
	// the outcome per item: errs[i] is nil iff items[i] was accepted.
	JSONSetMulti(ctx context.Context, items []JSONSetItem) ([]error, error)
	JSONGet(ctx context.Context, key string) ([]byte, error)
	JSONGetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// HashStore provides hash-based operations for index metadata.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// IndexInfo is the live state of an FT index as reported by the backend.
type IndexInfo struct {
	NumDocs   int64
	SizeBytes int64
	// Indexing is true while the backend is still scanning existing keys.
	Indexing bool
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	// DropIndex removes an index; dropDocs additionally deletes the indexed
	// documents themselves (FT.DROPINDEX DD).
	DropIndex(ctx context.Context, name string, dropDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	IndexInfo(ctx context.Context, name string) (IndexInfo, error)
	// WaitIndexed blocks until the index reports no pending indexing work,
	// making previously written documents searchable.
	WaitIndexed(ctx context.Context, name string) error
}

// Searcher provides search operations over FT indexes.
type Searcher interface {
	Search(ctx context.Context, q *TextQuery) (*SearchResult, error)
	Aggregate(ctx context.Context, q *AggQuery) ([]AggBucket, error)
}
