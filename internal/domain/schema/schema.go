package schema

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/csvsearch/internal/domain/dataset"
)

// FieldType is the inferred search-engine type of a column.
type FieldType string

const (
	// Numeric holds values indexed for numeric matching.
	Numeric FieldType = "numeric"
	// Text holds free text indexed for full-text search, with an exact-match
	// keyword companion for aggregation.
	Text FieldType = "text"
	// Date holds datetime-like values indexed for exact matching.
	Date FieldType = "date"
)

// Field is one column's inferred type.
type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// Mapping is the ordered field-type mapping inferred for a dataset. It is
// derived once per upload and never reconciled with a prior mapping.
type Mapping []Field

// dateLayouts are the accepted datetime forms, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
}

// Infer derives a Mapping from a dataset's columns. It never fails and is
// deterministic: every column gets exactly one entry.
//
// A column is numeric only when every non-null cell is numeric, and a date
// only when every non-null cell parses as a datetime. A single cell that is
// neither forces text -- indexing a mistyped value must not corrupt the
// index, so inference is conservative toward text. All-null columns are
// text for the same reason.
func Infer(d *dataset.Dataset) Mapping {
	cols := d.Columns()
	m := make(Mapping, 0, len(cols))

	for i, name := range cols {
		m = append(m, Field{Name: name, Type: classify(d.ColumnCells(i))})
	}

	return m
}

func classify(cells []dataset.Cell) FieldType {
	sawValue := false
	allNumeric := true
	allDate := true

	for _, c := range cells {
		if c.Kind == dataset.Null {
			continue
		}
		sawValue = true
		if c.Kind != dataset.Number {
			allNumeric = false
		}
		if !isDateLike(c.Raw) {
			allDate = false
		}
		if !allNumeric && !allDate {
			break
		}
	}

	switch {
	case !sawValue:
		return Text
	case allNumeric:
		return Numeric
	case allDate:
		return Date
	default:
		return Text
	}
}

func isDateLike(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// Type returns the inferred type of a named column.
func (m Mapping) Type(name string) (FieldType, bool) {
	for _, f := range m {
		if f.Name == name {
			return f.Type, true
		}
	}
	return "", false
}

// Columns returns the mapped column names in order.
func (m Mapping) Columns() []string {
	out := make([]string, len(m))
	for i, f := range m {
		out[i] = f.Name
	}
	return out
}

// KeywordAlias is the index attribute name of a text field's exact-match
// companion.
func KeywordAlias(name string) string { return name + "_kw" }

// Encode serializes the mapping for index metadata storage.
func (m Mapping) Encode() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode mapping: %w", err)
	}
	return string(data), nil
}

// Decode restores a mapping from its metadata form.
func Decode(s string) (Mapping, error) {
	var m Mapping
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("decode mapping: %w", err)
	}
	return m, nil
}
