package pardox

import (
	"context"
	"database/sql"
)

// DBQuerier is the subset of *sql.DB used by the SQL boundary.
type DBQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLAdapter makes a database/sql handle usable as a RowQuerier. The
// full result set is materialized before conversion; queries whose
// results exceed memory should be paginated by the caller.
type SQLAdapter struct {
	DB DBQuerier
}

// Query runs the statement and scans every row into driver values.
// []byte values are copied into strings because database/sql reuses the
// backing array between Scan calls.
func (a SQLAdapter) Query(ctx context.Context, query string, args ...any) ([]string, [][]any, error) {
	rows, err := a.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]any
	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return names, out, nil
}
