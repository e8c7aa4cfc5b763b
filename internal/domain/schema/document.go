package schema

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/csvsearch/internal/domain/dataset"
)

// EncodeRow renders one dataset row as the JSON document to index. Null cells
// become explicit JSON nulls rather than being dropped, so a fetched source
// always carries every column.
//
// A cell that cannot be coerced to its column's inferred type fails the whole
// row; partially typed rows never reach the index.
func EncodeRow(m Mapping, columns []string, cells []dataset.Cell) ([]byte, error) {
	if len(columns) != len(cells) {
		return nil, fmt.Errorf("row has %d cells for %d columns", len(cells), len(columns))
	}

	doc := make(map[string]any, len(columns))
	for i, col := range columns {
		cell := cells[i]
		if cell.Kind == dataset.Null {
			doc[col] = nil
			continue
		}

		typ, ok := m.Type(col)
		if !ok {
			return nil, fmt.Errorf("column %s is not mapped", col)
		}

		switch typ {
		case Numeric:
			if cell.Kind != dataset.Number {
				return nil, fmt.Errorf("column %s: %q is not numeric", col, cell.Raw)
			}
			doc[col] = cell.Num
		case Date:
			if !isDateLike(cell.Raw) {
				return nil, fmt.Errorf("column %s: %q is not a date", col, cell.Raw)
			}
			doc[col] = cell.Raw
		case Text:
			doc[col] = cell.Raw
		default:
			return nil, fmt.Errorf("column %s: unknown type %q", col, typ)
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal row: %w", err)
	}
	return data, nil
}
