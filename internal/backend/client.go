// Package backend provides the table-oriented data access used by every
// domain service. Callers depend on the Client interface so the hosted
// Postgres implementation can be swapped for the in-memory one in tests.
package backend

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrInvalidIdentifier is returned when a table or column name is unsafe.
	ErrInvalidIdentifier = errors.New("backend: invalid identifier")
	// ErrNotFound indicates no record matched the query.
	ErrNotFound = errors.New("backend: not found")
	// ErrConflict indicates a uniqueness violation.
	ErrConflict = errors.New("backend: conflict")
	// ErrUnfiltered prevents update/delete statements without filters.
	ErrUnfiltered = errors.New("backend: mutation requires at least one filter")
	// ErrEmptyRecord is returned when an insert or update carries no columns.
	ErrEmptyRecord = errors.New("backend: record has no columns")
	// ErrUnsupportedOp is returned for unknown filter operators.
	ErrUnsupportedOp = errors.New("backend: unsupported filter operator")
)

// Record is a single row keyed by column name.
type Record map[string]any

// Op enumerates supported filter comparisons.
type Op string

const (
	OpEq  Op = "eq"
	OpNeq Op = "neq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpIn  Op = "in"
)

// Filter restricts a query to rows whose column satisfies Op against Value.
// For OpIn the Value must be a []any.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Eq matches column = value.
func Eq(column string, value any) Filter { return Filter{Column: column, Op: OpEq, Value: value} }

// Neq matches column <> value.
func Neq(column string, value any) Filter { return Filter{Column: column, Op: OpNeq, Value: value} }

// Gte matches column >= value.
func Gte(column string, value any) Filter { return Filter{Column: column, Op: OpGte, Value: value} }

// Lte matches column <= value.
func Lte(column string, value any) Filter { return Filter{Column: column, Op: OpLte, Value: value} }

// In matches column against any of values.
func In(column string, values ...any) Filter {
	return Filter{Column: column, Op: OpIn, Value: values}
}

// Order sorts query results by a column.
type Order struct {
	Column string
	Desc   bool
}

// Query describes a select against a single table.
type Query struct {
	Table   string
	Columns []string
	Filters []Filter
	Order   []Order
	Limit   int
}

// Client is the query/mutate capability shared by domain repositories.
type Client interface {
	Select(ctx context.Context, q Query) ([]Record, error)
	Insert(ctx context.Context, table string, rec Record) (Record, error)
	Update(ctx context.Context, table string, filters []Filter, patch Record) (int64, error)
	Delete(ctx context.Context, table string, filters []Filter) (int64, error)
	Ping(ctx context.Context) error
}

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

func checkIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

func checkFilters(filters []Filter) error {
	for _, f := range filters {
		if err := checkIdentifier(f.Column); err != nil {
			return err
		}
		switch f.Op {
		case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte:
		case OpIn:
			if _, ok := f.Value.([]any); !ok {
				return fmt.Errorf("%w: in requires a list for %s", ErrUnsupportedOp, f.Column)
			}
		default:
			return fmt.Errorf("%w: %q", ErrUnsupportedOp, f.Op)
		}
	}
	return nil
}

func (q Query) validate() error {
	if err := checkIdentifier(q.Table); err != nil {
		return err
	}
	for _, col := range q.Columns {
		if err := checkIdentifier(col); err != nil {
			return err
		}
	}
	for _, o := range q.Order {
		if err := checkIdentifier(o.Column); err != nil {
			return err
		}
	}
	return checkFilters(q.Filters)
}

func checkRecord(rec Record) error {
	if len(rec) == 0 {
		return ErrEmptyRecord
	}
	for col := range rec {
		if err := checkIdentifier(col); err != nil {
			return err
		}
	}
	return nil
}
