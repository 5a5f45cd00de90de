package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/apotek/internal/backend"
)

// Insert writes one row through PostgREST without reading it back.
func (c *Client) Insert(ctx context.Context, table string, row backend.Row) error {
	err := c.do(ctx, request{
		method:  http.MethodPost,
		path:    []string{"rest", "v1", table},
		body:    row,
		headers: map[string]string{"Prefer": "return=minimal"},
	}, nil)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// Delete removes the rows of table matching filter. PostgREST refuses
// unfiltered deletes, so a filter is always required.
func (c *Client) Delete(ctx context.Context, table string, filter backend.Filter) error {
	if filter.Column == "" {
		return fmt.Errorf("delete from %s: filter column is required", table)
	}
	op, err := restOperator(filter.Op)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}

	err = c.do(ctx, request{
		method: http.MethodDelete,
		path:   []string{"rest", "v1", table},
		query:  url.Values{filter.Column: {fmt.Sprintf("%s.%v", op, filter.Value)}},
	}, nil)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

func restOperator(op backend.Op) (string, error) {
	switch op {
	case backend.OpEq, backend.OpNeq:
		return string(op), nil
	default:
		return "", fmt.Errorf("unsupported operator %q", op)
	}
}
