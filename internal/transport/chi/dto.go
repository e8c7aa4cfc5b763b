package chi

import (
	"time"

	domidx "github.com/kailas-cloud/csvsearch/internal/domain/index"
	domsearch "github.com/kailas-cloud/csvsearch/internal/domain/search"
	searchuc "github.com/kailas-cloud/csvsearch/internal/usecase/search"
	uploaduc "github.com/kailas-cloud/csvsearch/internal/usecase/upload"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type mappingField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type rowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type indexingStats struct {
	TotalRows      int        `json:"total_rows"`
	SuccessCount   int        `json:"success_count"`
	ErrorCount     int        `json:"error_count"`
	IndexingTimeMS int64      `json:"indexing_time_ms"`
	DocsPerSecond  float64    `json:"docs_per_second"`
	RowErrors      []rowError `json:"row_errors,omitempty"`
	Partial        bool       `json:"partial,omitempty"`
}

type uploadResponse struct {
	IndexName string         `json:"index_name"`
	Filename  string         `json:"filename"`
	Columns   []string       `json:"columns"`
	Mapping   []mappingField `json:"mapping"`
	Stats     indexingStats  `json:"stats"`
}

func uploadToDTO(res *uploaduc.Result) uploadResponse {
	mapping := make([]mappingField, len(res.Mapping))
	for i, f := range res.Mapping {
		mapping[i] = mappingField{Name: f.Name, Type: string(f.Type)}
	}

	rowErrors := make([]rowError, len(res.Report.RowErrors))
	for i, re := range res.Report.RowErrors {
		rowErrors[i] = rowError{Row: re.Row, Reason: re.Reason}
	}

	return uploadResponse{
		IndexName: res.Index,
		Filename:  res.Filename,
		Columns:   res.Columns,
		Mapping:   mapping,
		Stats: indexingStats{
			TotalRows:      res.Report.Total,
			SuccessCount:   res.Report.Success,
			ErrorCount:     res.Report.Failed,
			IndexingTimeMS: res.Report.ElapsedMS,
			DocsPerSecond:  res.Report.DocsPerSecond(),
			RowErrors:      rowErrors,
			Partial:        res.Report.Partial,
		},
	}
}

type searchRequest struct {
	IndexName  string `json:"index_name"`
	Query      string `json:"query"`
	Size       int    `json:"size,omitempty"`
	AggField   string `json:"agg_field,omitempty"`
	MaxBuckets int    `json:"max_buckets,omitempty"`
}

type searchHit struct {
	ID         int               `json:"id"`
	Score      float64           `json:"score"`
	Source     map[string]any    `json:"source"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

type bucket struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

type searchResponse struct {
	Query    string      `json:"query"`
	Total    int         `json:"total"`
	Returned int         `json:"returned"`
	TookMS   int64       `json:"took_ms"`
	Hits     []searchHit `json:"hits"`
	Buckets  []bucket    `json:"buckets,omitempty"`
}

func searchToDTO(rs *searchuc.ResultSet) searchResponse {
	hits := make([]searchHit, len(rs.Hits))
	for i, h := range rs.Hits {
		hits[i] = searchHit{ID: h.ID, Score: h.Score, Source: h.Source, Highlights: h.Highlights}
	}

	resp := searchResponse{
		Query:    rs.Query,
		Total:    rs.Total,
		Returned: rs.Returned,
		TookMS:   rs.TookMS,
		Hits:     hits,
	}
	if rs.Buckets != nil {
		resp.Buckets = bucketsToDTO(rs.Buckets)
	}
	return resp
}

func bucketsToDTO(in []domsearch.Bucket) []bucket {
	out := make([]bucket, len(in))
	for i, b := range in {
		out[i] = bucket{Value: b.Value, Count: b.Count}
	}
	return out
}

type indexEntry struct {
	Name      string    `json:"name"`
	DocCount  int64     `json:"doc_count"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

type indicesResponse struct {
	Indices []indexEntry `json:"indices"`
}

func indicesToDTO(entries []domidx.Entry) indicesResponse {
	items := make([]indexEntry, len(entries))
	for i, e := range entries {
		items[i] = indexEntry{
			Name:      e.Name,
			DocCount:  e.DocCount,
			SizeBytes: e.SizeBytes,
			CreatedAt: e.CreatedAt.UTC(),
		}
	}
	return indicesResponse{Indices: items}
}

type reapResponse struct {
	Scanned int      `json:"scanned"`
	Reaped  []string `json:"reaped"`
	Failed  []string `json:"failed,omitempty"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
