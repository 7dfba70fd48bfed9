package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Postgres implements Client on top of a pgx pool. Rows travel as jsonb and
// every bound value is cast through jsonb_populate_record so Postgres applies
// the column types.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps the pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Select runs q and returns each row as a Record.
func (p *Postgres) Select(ctx context.Context, q Query) ([]Record, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	sql, args, err := buildSelect(q)
	if err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapErr("select "+q.Table, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, wrapErr("scan "+q.Table, err)
		}
		rec, err := parseRecord(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("rows "+q.Table, err)
	}
	return out, nil
}

// Insert writes rec and returns the stored row including defaults.
func (p *Postgres) Insert(ctx context.Context, table string, rec Record) (Record, error) {
	if err := checkIdentifier(table); err != nil {
		return nil, err
	}
	if err := checkRecord(rec); err != nil {
		return nil, err
	}
	sql, args, err := buildInsert(table, rec)
	if err != nil {
		return nil, err
	}
	var raw []byte
	if err := p.pool.QueryRow(ctx, sql, args...).Scan(&raw); err != nil {
		return nil, wrapErr("insert "+table, err)
	}
	return parseRecord(raw)
}

// Update applies patch to every row matching filters.
func (p *Postgres) Update(ctx context.Context, table string, filters []Filter, patch Record) (int64, error) {
	if err := checkIdentifier(table); err != nil {
		return 0, err
	}
	if len(filters) == 0 {
		return 0, ErrUnfiltered
	}
	if err := checkFilters(filters); err != nil {
		return 0, err
	}
	if err := checkRecord(patch); err != nil {
		return 0, err
	}
	sql, args, err := buildUpdate(table, filters, patch)
	if err != nil {
		return 0, err
	}
	tag, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, wrapErr("update "+table, err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes every row matching filters.
func (p *Postgres) Delete(ctx context.Context, table string, filters []Filter) (int64, error) {
	if err := checkIdentifier(table); err != nil {
		return 0, err
	}
	if len(filters) == 0 {
		return 0, ErrUnfiltered
	}
	if err := checkFilters(filters); err != nil {
		return 0, err
	}
	where, args, err := buildWhere(table, filters, 1)
	if err != nil {
		return 0, err
	}
	sql := "DELETE FROM " + quote(table) + " AS t" + where
	tag, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, wrapErr("delete "+table, err)
	}
	return tag.RowsAffected(), nil
}

// Ping verifies connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return wrapErr("ping", err)
	}
	return nil
}

func wrapErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("backend: %s: %w: %s", op, ErrConflict, pgErr.ConstraintName)
	}
	return fmt.Errorf("backend: %s: %w", op, err)
}

func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func buildSelect(q Query) (string, []any, error) {
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(q.Columns) == 0 {
		b.WriteString("to_jsonb(t)")
	} else {
		b.WriteString("jsonb_build_object(")
		for i, col := range q.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("'" + col + "', t." + quote(col))
		}
		b.WriteString(")")
	}
	b.WriteString(" FROM " + quote(q.Table) + " AS t")
	where, args, err := buildWhere(q.Table, q.Filters, 1)
	if err != nil {
		return "", nil, err
	}
	b.WriteString(where)
	if len(q.Order) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range q.Order {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("t." + quote(o.Column))
			if o.Desc {
				b.WriteString(" DESC")
			}
		}
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(q.Limit))
	}
	return b.String(), args, nil
}

func buildWhere(table string, filters []Filter, start int) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}
	clauses := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	idx := start
	for _, f := range filters {
		col := quote(f.Column)
		if f.Op == OpIn {
			values := f.Value.([]any)
			payload, err := json.Marshal(values)
			if err != nil {
				return "", nil, fmt.Errorf("backend: encode filter %s: %w", f.Column, err)
			}
			clauses = append(clauses, fmt.Sprintf(
				"t.%s IN (SELECT (jsonb_populate_record(NULL::%s, jsonb_build_object('%s', x))).%s FROM jsonb_array_elements($%d::jsonb) AS x)",
				col, quote(table), f.Column, col, idx))
			args = append(args, string(payload))
			idx++
			continue
		}
		payload, err := json.Marshal(map[string]any{f.Column: f.Value})
		if err != nil {
			return "", nil, fmt.Errorf("backend: encode filter %s: %w", f.Column, err)
		}
		clauses = append(clauses, fmt.Sprintf("t.%s %s (jsonb_populate_record(NULL::%s, $%d::jsonb)).%s",
			col, sqlOp(f.Op), quote(table), idx, col))
		args = append(args, string(payload))
		idx++
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func sqlOp(op Op) string {
	switch op {
	case OpNeq:
		return "<>"
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	default:
		return "="
	}
}

func sortedColumns(rec Record) []string {
	cols := make([]string, 0, len(rec))
	for col := range rec {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func buildInsert(table string, rec Record) (string, []any, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return "", nil, fmt.Errorf("backend: encode %s: %w", table, err)
	}
	cols := sortedColumns(rec)
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = quote(col)
	}
	list := strings.Join(quoted, ", ")
	sql := fmt.Sprintf("INSERT INTO %s AS t (%s) SELECT %s FROM jsonb_populate_record(NULL::%s, $1::jsonb) RETURNING to_jsonb(t)",
		quote(table), list, list, quote(table))
	return sql, []any{string(payload)}, nil
}

func buildUpdate(table string, filters []Filter, patch Record) (string, []any, error) {
	payload, err := json.Marshal(patch)
	if err != nil {
		return "", nil, fmt.Errorf("backend: encode %s: %w", table, err)
	}
	cols := sortedColumns(patch)
	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = (jsonb_populate_record(NULL::%s, $1::jsonb)).%s", quote(col), quote(table), quote(col))
	}
	where, args, err := buildWhere(table, filters, 2)
	if err != nil {
		return "", nil, err
	}
	sql := "UPDATE " + quote(table) + " AS t SET " + strings.Join(sets, ", ") + where
	return sql, append([]any{string(payload)}, args...), nil
}
