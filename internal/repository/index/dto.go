package index

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/csvsearch/internal/db"
	"github.com/kailas-cloud/csvsearch/internal/domain"
	domidx "github.com/kailas-cloud/csvsearch/internal/domain/index"
	"github.com/kailas-cloud/csvsearch/internal/domain/schema"
)

// Redis key patterns: csvsearch:index:{name}, csvsearch:doc:{name}:{ordinal}

func metaKey(name string) string {
	return fmt.Sprintf("%sindex:%s", domain.KeyPrefix, name)
}

func docPrefix(name string) string {
	return fmt.Sprintf("%sdoc:%s:", domain.KeyPrefix, name)
}

// buildIndex converts an inferred mapping into an FT index definition over
// JSON documents. Text columns are indexed twice: TEXT under the column name
// for fuzzy matching, TAG under the keyword alias for exact-match bucketing.
// Date columns are TAG because bucketing them by distinct value is the only
// operation run against them.
func buildIndex(name string, m schema.Mapping) (*db.IndexDefinition, error) {
	fields := make([]db.IndexField, 0, len(m)+1)

	for _, f := range m {
		path := jsonPath(f.Name)
		switch f.Type {
		case schema.Numeric:
			fields = append(fields, db.IndexField{Path: path, Alias: f.Name, Type: db.IndexFieldNumeric})
		case schema.Text:
			fields = append(fields,
				db.IndexField{Path: path, Alias: f.Name, Type: db.IndexFieldText},
				db.IndexField{Path: path, Alias: schema.KeywordAlias(f.Name), Type: db.IndexFieldTag},
			)
		case schema.Date:
			fields = append(fields, db.IndexField{Path: path, Alias: f.Name, Type: db.IndexFieldTag})
		default:
			return nil, fmt.Errorf("column %s: unknown type %q", f.Name, f.Type)
		}
	}

	return &db.IndexDefinition{
		Name:     name,
		Prefixes: []string{docPrefix(name)},
		Fields:   fields,
	}, nil
}

// jsonPath addresses a column in a stored document. Bracket notation keeps
// column names with spaces or dots addressable.
func jsonPath(column string) string {
	return fmt.Sprintf("$[%q]", column)
}

func metaToHash(m domidx.Meta) (map[string]string, error) {
	mappingJSON, err := m.Mapping.Encode()
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"name":         m.Name,
		"mapping_json": mappingJSON,
		"created_at":   strconv.FormatInt(m.CreatedAt.UnixMilli(), 10),
	}, nil
}

func metaFromHash(h map[string]string) (domidx.Meta, error) {
	mapping, err := schema.Decode(h["mapping_json"])
	if err != nil {
		return domidx.Meta{}, err
	}

	createdAt, err := strconv.ParseInt(h["created_at"], 10, 64)
	if err != nil {
		return domidx.Meta{}, fmt.Errorf("invalid created_at: %w", err)
	}

	return domidx.Meta{
		Name:      h["name"],
		Mapping:   mapping,
		CreatedAt: time.UnixMilli(createdAt),
	}, nil
}
