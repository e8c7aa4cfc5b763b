package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/csvsearch/internal/db"
)

// Search runs a fuzzy full-text search via FT.SEARCH with scores and
// per-field highlighting.
func (s *Store) Search(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if q.Size <= 0 {
		return nil, fmt.Errorf("size must be positive")
	}

	queryStr := buildTextQuery(q.Query, q.Fuzzy)

	args := []string{q.IndexName, queryStr, "WITHSCORES"}

	if len(q.HighlightFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.HighlightFields)))
		args = append(args, q.HighlightFields...)

		openTag, closeTag := q.HighlightOpen, q.HighlightClose
		if openTag == "" {
			openTag, closeTag = "<em>", "</em>"
		}
		args = append(args, "HIGHLIGHT", "FIELDS", strconv.Itoa(len(q.HighlightFields)))
		args = append(args, q.HighlightFields...)
		args = append(args, "TAGS", openTag, closeTag)
	}

	args = append(args, "LIMIT", "0", strconv.Itoa(q.Size), "DIALECT", "2")

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isUnknownIndexErr(err) {
			return nil, db.ErrIndexNotFound
		}
		return nil, wrapOp(db.OpSearch, err)
	}

	return parseSearchResult(raw)
}

// Aggregate buckets distinct values of one attribute via FT.AGGREGATE,
// scoped to the same query the search ran with.
func (s *Store) Aggregate(ctx context.Context, q *db.AggQuery) ([]db.AggBucket, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Field == "" {
		return nil, fmt.Errorf("field is required")
	}

	queryStr := buildTextQuery(q.Query, q.Fuzzy)

	maxBuckets := q.MaxBuckets
	if maxBuckets <= 0 {
		maxBuckets = 10
	}

	args := []string{
		q.IndexName, queryStr,
		"GROUPBY", "1", "@" + q.Field,
		"REDUCE", "COUNT", "0", "AS", "count",
		"SORTBY", "2", "@count", "DESC",
		"LIMIT", "0", strconv.Itoa(maxBuckets),
		"DIALECT", "2",
	}

	cmd := s.b().Arbitrary("FT.AGGREGATE").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isUnknownIndexErr(err) {
			return nil, db.ErrIndexNotFound
		}
		return nil, wrapOp(db.OpAggregate, err)
	}

	return parseAggResult(raw, q.Field)
}

// buildTextQuery tokenizes raw user text into an any-term query, escaping
// query syntax and scaling fuzziness by term length: terms under 3 runes
// match exactly, 3-5 runes tolerate one edit, longer terms tolerate two.
func buildTextQuery(raw string, fuzzy bool) string {
	tokens := strings.Fields(raw)
	if len(tokens) == 0 {
		return "*"
	}

	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		escaped := escapeQuery(tok)
		if escaped == "" {
			continue
		}
		if fuzzy {
			switch n := utf8.RuneCountInString(tok); {
			case n > 5:
				escaped = "%%" + escaped + "%%"
			case n >= 3:
				escaped = "%" + escaped + "%"
			}
		}
		parts = append(parts, escaped)
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " | ")
}

// --- Result parsing ---

func parseSearchResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{Total: 0}, nil
	}

	entries := make([]db.SearchEntry, 0, total)
	// 3-stride with WITHSCORES: [total, key1, score1, fields1, key2, score2, fields2, ...]
	for i := 1; i+2 < len(raw); i += 3 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}

		fields, err := raw[i+2].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Score:  score,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseAggResult(raw []rueidis.RedisMessage, field string) ([]db.AggBucket, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	buckets := make([]db.AggBucket, 0, len(raw)-1)
	for i := 1; i < len(raw); i++ {
		row, err := raw[i].ToArray()
		if err != nil {
			continue
		}
		pairs := parseFieldPairs(row)

		value, ok := pairs[field]
		if !ok {
			continue
		}
		count, err := strconv.ParseInt(pairs["count"], 10, 64)
		if err != nil {
			continue
		}
		buckets = append(buckets, db.AggBucket{Value: value, Count: count})
	}

	return buckets, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Query escaping ---

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
)
