package ai

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// Querier runs a read-only query and returns at most limit rows keyed by
// column name. truncated is set when more rows were available.
type Querier interface {
	Query(ctx context.Context, query string, limit int) (rows []map[string]any, truncated bool, err error)
}

type clickhouseQuerier struct {
	db      *sql.DB
	timeout int // seconds
}

func (q *clickhouseQuerier) Query(ctx context.Context, query string, limit int) ([]map[string]any, bool, error) {
	ctx = clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{
		"max_execution_time": q.timeout,
	}))

	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, false, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, false, err
	}

	out := make([]map[string]any, 0)
	for rows.Next() {
		if len(out) == limit {
			return out, true, nil
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, false, fmt.Errorf("scan row: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, false, rows.Err()
}
