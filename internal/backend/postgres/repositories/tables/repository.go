package tables

import (
	"context"

	"github.com/dmitrijs2005/apotek/internal/backend"
)

type Repository interface {
	Insert(ctx context.Context, table string, row backend.Row) error
	Delete(ctx context.Context, table string, filter backend.Filter) (int64, error)
}
