// Package query validates and executes ad-hoc analytical SQL submitted by
// callers. Only SELECT text is accepted, a keyword blacklist rejects anything
// that smells like a write, and execution happens on a read-only connection
// under a deadline. The blacklist is defense-in-depth: the connection itself
// cannot write even if a hostile statement slips through.
package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidQuery rejects empty text and anything that is not a SELECT.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrTimeout is returned when execution exceeds the sandbox budget.
	ErrTimeout = errors.New("query timed out")
)

// ForbiddenKeywordError names the blacklisted keyword found in the text.
type ForbiddenKeywordError struct {
	Keyword string
}

func (e *ForbiddenKeywordError) Error() string {
	return fmt.Sprintf("keyword %q is not allowed", e.Keyword)
}

// forbiddenKeywords are rejected as case-insensitive substrings anywhere in
// the text. The substring match is deliberately conservative: a column
// literally named "created" trips CREATE. That false positive is the accepted
// tradeoff, not a bug.
var forbiddenKeywords = []string{
	"DROP", "DELETE", "UPDATE", "INSERT", "ALTER", "CREATE", "TRUNCATE", "EXEC", "EXECUTE",
}

// Store is the read-only surface the sandbox executes against.
type Store interface {
	QueryRead(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Result is the generic tabular shape returned for every successful query.
type Result struct {
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"data"`
	RowCount int      `json:"row_count"`
}

// Sandbox runs validated read-only queries with a hard time budget.
type Sandbox struct {
	store   Store
	timeout time.Duration
}

// New constructs a Sandbox. A non-positive timeout falls back to 5s.
func New(store Store, timeout time.Duration) *Sandbox {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Sandbox{store: store, timeout: timeout}
}

// Execute validates raw query text and runs it, returning the full result
// set. Validation happens before the store is touched: empty text and
// blacklisted keywords are rejected first, then anything that does not start
// with SELECT. Store-level failures are wrapped, never swallowed.
func (s *Sandbox) Execute(ctx context.Context, raw string) (*Result, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrInvalidQuery)
	}

	upper := strings.ToUpper(trimmed)
	for _, kw := range forbiddenKeywords {
		if strings.Contains(upper, kw) {
			return nil, &ForbiddenKeywordError{Keyword: kw}
		}
	}
	if !strings.HasPrefix(upper, "SELECT") {
		return nil, fmt.Errorf("%w: only SELECT queries are allowed", ErrInvalidQuery)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.store.QueryRead(ctx, trimmed)
	if err != nil {
		return nil, storeErr(ctx, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, storeErr(ctx, err)
	}
	if cols == nil {
		cols = []string{}
	}

	result := &Result{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, storeErr(ctx, err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(ctx, err)
	}
	result.RowCount = len(result.Rows)
	return result, nil
}

func storeErr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return fmt.Errorf("database error: %w", err)
}
