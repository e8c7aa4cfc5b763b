package report

import "time"

// MaxRowErrors caps the number of per-row failure descriptors a report
// carries; the counts always cover every row.
const MaxRowErrors = 50

// RowError describes one row that could not be indexed.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Indexing is the outcome of one bulk indexing run. Success+Failed always
// equals Total, whether the run finished or was cut short.
type Indexing struct {
	Total     int           `json:"total_rows"`
	Success   int           `json:"success_count"`
	Failed    int           `json:"error_count"`
	Elapsed   time.Duration `json:"-"`
	ElapsedMS int64         `json:"indexing_time_ms"`
	RowErrors []RowError    `json:"row_errors,omitempty"`
	// Partial marks a run cut short by the upload deadline; unattempted
	// rows are counted as failures.
	Partial bool `json:"partial,omitempty"`
}

// Builder accumulates per-row outcomes during a run.
type Builder struct {
	total   int
	success int
	failed  int
	errs    []RowError
	start   time.Time
}

// NewBuilder starts accounting for a run over total rows.
func NewBuilder(total int) *Builder {
	return &Builder{total: total, start: time.Now()}
}

// RowIndexed records one successfully indexed row.
func (b *Builder) RowIndexed() { b.success++ }

// RowFailed records one failed row with its reason.
func (b *Builder) RowFailed(row int, reason string) {
	b.failed++
	if len(b.errs) < MaxRowErrors {
		b.errs = append(b.errs, RowError{Row: row, Reason: reason})
	}
}

// Attempted returns how many rows have an outcome so far.
func (b *Builder) Attempted() int { return b.success + b.failed }

// Finish closes the run. With partial set, rows that never got an outcome
// are counted as failures so the totals stay consistent.
func (b *Builder) Finish(partial bool) Indexing {
	if partial {
		for b.Attempted() < b.total {
			b.RowFailed(b.Attempted(), "not attempted: indexing deadline exceeded")
		}
	}
	elapsed := time.Since(b.start)
	return Indexing{
		Total:     b.total,
		Success:   b.success,
		Failed:    b.failed,
		Elapsed:   elapsed,
		ElapsedMS: elapsed.Milliseconds(),
		RowErrors: b.errs,
		Partial:   partial,
	}
}

// DocsPerSecond derives indexing throughput; zero when the elapsed time
// rounds to zero so the division stays defined.
func (r Indexing) DocsPerSecond() float64 {
	if r.Elapsed.Round(time.Millisecond) == 0 {
		return 0
	}
	return float64(r.Success) / r.Elapsed.Seconds()
}
