// Package tables performs generic row writes against the application
// tables of the self-hosted backend.
package tables

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/apotek/internal/backend"
	"github.com/dmitrijs2005/apotek/internal/dbx"
	"github.com/jackc/pgx/v5"
)

var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrEmptyRow      = errors.New("empty row")
	ErrInvalidFilter = errors.New("invalid filter")
)

var known = map[string]struct{}{
	backend.TableProfiles:      {},
	backend.TableSaleItems:     {},
	backend.TableSales:         {},
	backend.TablePurchaseItems: {},
	backend.TablePurchases:     {},
	backend.TableMedicines:     {},
	backend.TableSuppliers:     {},
}

var operators = map[backend.Op]string{
	backend.OpEq:  "=",
	backend.OpNeq: "<>",
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func tableIdent(table string) (string, error) {
	if _, ok := known[table]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return pgx.Identifier{table}.Sanitize(), nil
}

// Insert writes one row. Columns are emitted in sorted order so the
// statement text is stable for a given set of keys.
func (r *PostgresRepository) Insert(ctx context.Context, table string, row backend.Row) error {
	ident, err := tableIdent(table)
	if err != nil {
		return err
	}
	if len(row) == 0 {
		return ErrEmptyRow
	}

	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	slices.Sort(cols)

	quoted := make([]string, len(cols))
	params := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
		params[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[c]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ident, strings.Join(quoted, ", "), strings.Join(params, ", "))

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Delete removes the rows matching filter and reports how many went.
func (r *PostgresRepository) Delete(ctx context.Context, table string, filter backend.Filter) (int64, error) {
	ident, err := tableIdent(table)
	if err != nil {
		return 0, err
	}
	op, ok := operators[filter.Op]
	if !ok || filter.Column == "" {
		return 0, fmt.Errorf("%w: %s %s", ErrInvalidFilter, filter.Column, filter.Op)
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s %s $1", ident, pgx.Identifier{filter.Column}.Sanitize(), op)

	res, err := r.db.ExecContext(ctx, query, filter.Value)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
