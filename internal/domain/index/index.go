// Package index holds the domain description of a provisioned index.
package index

import (
	"time"

	"github.com/kailas-cloud/csvsearch/internal/domain/schema"
)

// Meta is the stored description of an index: its inferred mapping and when
// it was created. The backend does not track creation time, so it lives in a
// metadata record next to the index.
type Meta struct {
	Name      string
	Mapping   schema.Mapping
	CreatedAt time.Time
}

// Entry is one index in a listing, annotated with live backend state.
type Entry struct {
	Name      string
	DocCount  int64
	SizeBytes int64
	CreatedAt time.Time
}
