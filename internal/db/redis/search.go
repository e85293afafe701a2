package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/lawman-hq/clauseidx/internal/db"
)

// SearchBM25 performs full-text search with BM25 scoring over TEXT fields.
func (s *Store) SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, errors.New("index name is required")
	}
	if q.TopK <= 0 {
		return nil, errors.New("topK must be positive")
	}

	args := []string{q.IndexName, escapeQuery(q.Query), "WITHSCORES"}

	if q.Highlight != nil {
		args = append(args, buildHighlightArgs(q.Highlight)...)
	}

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}

	args = append(args,
		"LIMIT", "0", strconv.Itoa(q.TopK),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	resp, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index name") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseSearchResponse(resp)
}

// SearchCount returns the number of documents matching query without
// fetching any of them (LIMIT 0 0).
func (s *Store) SearchCount(ctx context.Context, index, query string) (int, error) {
	if index == "" {
		return 0, errors.New("index name is required")
	}

	cmd := s.b().Arbitrary("FT.SEARCH").
		Args(index, query, "LIMIT", "0", "0", "DIALECT", "2").
		Build()
	resp, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index name") {
			return 0, db.ErrIndexNotFound
		}
		return 0, &db.Error{Op: db.OpSearch, Err: err}
	}
	if len(resp) == 0 {
		return 0, &db.Error{Op: db.OpSearch, Err: errors.New("empty response")}
	}

	total, err := resp[0].AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("parse total: %w", err)}
	}
	return int(total), nil
}

func buildHighlightArgs(h *db.HighlightSpec) []string {
	if len(h.Fields) == 0 {
		return nil
	}

	args := []string{"HIGHLIGHT", "FIELDS", strconv.Itoa(len(h.Fields))}
	args = append(args, h.Fields...)
	if h.OpenTag != "" && h.CloseTag != "" {
		args = append(args, "TAGS", h.OpenTag, h.CloseTag)
	}
	return args
}

// parseSearchResponse parses a WITHSCORES RESP2 reply:
// [total, key1, score1, fields1, key2, score2, fields2, ...].
func parseSearchResponse(resp []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(resp) == 0 {
		return nil, &db.Error{Op: db.OpSearch, Err: errors.New("empty response")}
	}

	total, err := resp[0].AsInt64()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("parse total: %w", err)}
	}

	result := &db.SearchResult{Total: int(total)}

	const stride = 3
	for i := 1; i+stride-1 < len(resp); i += stride {
		key, err := resp[i].ToString()
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("parse key at %d: %w", i, err)}
		}

		scoreStr, err := resp[i+1].ToString()
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("parse score for %s: %w", key, err)}
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("parse score %q: %w", scoreStr, err)}
		}

		fieldsArr, err := resp[i+2].ToArray()
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("parse fields for %s: %w", key, err)}
		}

		fields := make(map[string]string, len(fieldsArr)/2)
		for j := 0; j+1 < len(fieldsArr); j += 2 {
			name, err := fieldsArr[j].ToString()
			if err != nil {
				continue
			}
			value, err := fieldsArr[j+1].ToString()
			if err != nil {
				continue
			}
			fields[name] = value
		}

		result.Entries = append(result.Entries, db.SearchEntry{
			Key:    key,
			Score:  score,
			Fields: fields,
		})
	}

	return result, nil
}

// escapeQuery escapes RediSearch query syntax characters in user input.
func escapeQuery(q string) string {
	replacer := strings.NewReplacer(
		",", "\\,", ".", "\\.", "<", "\\<", ">", "\\>",
		"{", "\\{", "}", "\\}", "[", "\\[", "]", "\\]",
		"\"", "\\\"", "'", "\\'", ":", "\\:", ";", "\\;",
		"!", "\\!", "@", "\\@", "#", "\\#", "$", "\\$",
		"%", "\\%", "^", "\\^", "&", "\\&", "*", "\\*",
		"(", "\\(", ")", "\\)", "-", "\\-", "+", "\\+",
		"=", "\\=", "~", "\\~", "/", "\\/", "|", "\\|",
	)
	return replacer.Replace(q)
}
