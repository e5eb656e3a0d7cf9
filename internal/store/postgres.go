package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"shuttle-ledger/internal/apperr"
)

// PostgresStore collection contract over database/sql + lib/pq.
// Collections map to tables of the same name.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore db is owned by the caller
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Select(ctx context.Context, collection string, filter Filter, opts SelectOptions) ([]Row, error) {
	where, args := whereClause(filter, 1)
	q := "SELECT * FROM " + pq.QuoteIdentifier(collection) + where
	if opts.OrderBy != "" {
		q += " ORDER BY " + pq.QuoteIdentifier(opts.OrderBy)
		if opts.Desc {
			q += " DESC"
		}
	}
	if opts.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperr.Unavailable("select", collection, err)
	}
	defer rows.Close()
	out, err := scanRows(rows)
	if err != nil {
		return nil, apperr.Unavailable("select", collection, err)
	}
	return out, nil
}

func (p *PostgresStore) Insert(ctx context.Context, collection string, rows []Row, opts InsertOptions) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		cols := sortedKeys(r)
		if len(cols) == 0 {
			continue
		}
		quoted := make([]string, len(cols))
		holders := make([]string, len(cols))
		args := make([]any, len(cols))
		for i, c := range cols {
			quoted[i] = pq.QuoteIdentifier(c)
			holders[i] = fmt.Sprintf("$%d", i+1)
			args[i] = r[c]
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			pq.QuoteIdentifier(collection), strings.Join(quoted, ", "), strings.Join(holders, ", "))
		if opts.OnConflict != "" {
			q += " ON CONFLICT (" + pq.QuoteIdentifier(opts.OnConflict) + ") DO UPDATE SET " + excludedSet(cols, opts.OnConflict)
		}
		q += " RETURNING *"

		res, err := p.db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, apperr.Unavailable("insert", collection, err)
		}
		written, err := scanRows(res)
		res.Close()
		if err != nil {
			return nil, apperr.Unavailable("insert", collection, err)
		}
		out = append(out, written...)
	}
	return out, nil
}

func (p *PostgresStore) Patch(ctx context.Context, collection string, match Filter, fields Row) ([]Row, error) {
	if len(match) == 0 {
		return nil, apperr.NewValidationError("match", collection, "patch requires a filter")
	}
	if len(fields) == 0 {
		return p.Select(ctx, collection, match, SelectOptions{})
	}
	cols := sortedKeys(fields)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(match))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(c), i+1)
		args = append(args, fields[c])
	}
	where, whereArgs := whereClause(match, len(cols)+1)
	args = append(args, whereArgs...)
	q := "UPDATE " + pq.QuoteIdentifier(collection) + " SET " + strings.Join(sets, ", ") + where + " RETURNING *"

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperr.Unavailable("patch", collection, err)
	}
	defer rows.Close()
	out, err := scanRows(rows)
	if err != nil {
		return nil, apperr.Unavailable("patch", collection, err)
	}
	return out, nil
}

func (p *PostgresStore) Delete(ctx context.Context, collection string, match Filter) error {
	if len(match) == 0 {
		return apperr.NewValidationError("match", collection, "delete requires a filter")
	}
	where, args := whereClause(match, 1)
	if _, err := p.db.ExecContext(ctx, "DELETE FROM "+pq.QuoteIdentifier(collection)+where, args...); err != nil {
		return apperr.Unavailable("delete", collection, err)
	}
	return nil
}

// whereClause " WHERE ..." with placeholders numbered from start; empty filter yields ""
func whereClause(f Filter, start int) (string, []any) {
	if len(f) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(f))
	args := make([]any, 0, len(f))
	n := start
	for _, col := range sortedKeys(f) {
		v := f[col]
		if v == nil {
			parts = append(parts, pq.QuoteIdentifier(col)+" IS NULL")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(col), n))
		args = append(args, v)
		n++
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

func excludedSet(cols []string, conflict string) string {
	sets := make([]string, 0, len(cols))
	for _, c := range cols {
		if c == conflict {
			continue
		}
		q := pq.QuoteIdentifier(c)
		sets = append(sets, q+" = EXCLUDED."+q)
	}
	if len(sets) == 0 {
		q := pq.QuoteIdentifier(conflict)
		sets = append(sets, q+" = EXCLUDED."+q)
	}
	return strings.Join(sets, ", ")
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		r := make(Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				r[c] = string(b)
				continue
			}
			r[c] = vals[i]
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
