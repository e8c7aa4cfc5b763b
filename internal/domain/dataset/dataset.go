package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/csvsearch/internal/domain"
)

// CellKind classifies a single parsed cell.
type CellKind int

const (
	// Null is an empty or NaN cell. It stays an explicit null through
	// indexing, never an omitted key.
	Null CellKind = iota
	// Number is a cell whose text parses as a finite float.
	Number
	// Text is any other non-empty cell.
	Text
)

// Cell is one typed value. Raw always holds the original text so a numeric
// cell in a text column keeps its source form.
type Cell struct {
	Kind CellKind
	Num  float64
	Raw  string
}

// Dataset is an immutable row-oriented table parsed from CSV input.
// Columns are ordered as they appeared in the header; every column holds
// exactly NumRows cells.
type Dataset struct {
	columns []string
	cells   [][]Cell // cells[col][row]
	rows    int
}

// Parse reads CSV bytes with a mandatory header row into a Dataset.
// Invalid UTF-8, a missing header, duplicate header names, and rows with a
// column count different from the header all fail with ErrMalformedInput.
func Parse(raw []byte) (*Dataset, error) {
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%w: input is not valid UTF-8", domain.ErrMalformedInput)
	}

	r := csv.NewReader(bytes.NewReader(raw))
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header row", domain.ErrMalformedInput)
		}
		return nil, fmt.Errorf("%w: read header: %v", domain.ErrMalformedInput, err)
	}

	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		if h == "" {
			return nil, fmt.Errorf("%w: empty column name at position %d", domain.ErrMalformedInput, i+1)
		}
		if seen[h] {
			return nil, fmt.Errorf("%w: duplicate column name %q", domain.ErrMalformedInput, h)
		}
		seen[h] = true
		columns[i] = h
	}

	cells := make([][]Cell, len(columns))
	rows := 0

	line := 1
	for {
		line++
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// encoding/csv enforces the header's field count after the
			// first record via FieldsPerRecord.
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrMalformedInput, line, err)
		}
		if len(rec) != len(columns) {
			return nil, fmt.Errorf("%w: line %d: expected %d columns, got %d",
				domain.ErrMalformedInput, line, len(columns), len(rec))
		}
		for i, v := range rec {
			cells[i] = append(cells[i], parseCell(v))
		}
		rows++
	}

	return &Dataset{columns: columns, cells: cells, rows: rows}, nil
}

// Columns returns the ordered column names.
func (d *Dataset) Columns() []string { return d.columns }

// NumRows returns the number of data rows (header excluded).
func (d *Dataset) NumRows() int { return d.rows }

// ColumnCells returns all cells of the i-th column in row order.
func (d *Dataset) ColumnCells(i int) []Cell { return d.cells[i] }

// Row returns the cells of one row in column order.
func (d *Dataset) Row(row int) []Cell {
	out := make([]Cell, len(d.columns))
	for i := range d.columns {
		out[i] = d.cells[i][row]
	}
	return out
}

func parseCell(v string) Cell {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return Cell{Kind: Null}
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Cell{Kind: Null, Raw: trimmed}
		}
		return Cell{Kind: Number, Num: f, Raw: trimmed}
	}
	return Cell{Kind: Text, Raw: trimmed}
}
