package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FailFunc lets tests inject errors. It receives the operation name
// ("select", "insert", "update", "delete"), the table and the filters.
type FailFunc func(op, table string, filters []Filter) error

// Memory is an in-process Client used by tests and local tooling.
type Memory struct {
	mu     sync.Mutex
	tables map[string][]Record
	Fail   FailFunc
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string][]Record)}
}

// Seed inserts rows into table, assigning ids where missing.
func (m *Memory) Seed(table string, rows ...any) error {
	for _, row := range rows {
		rec, ok := row.(Record)
		if !ok {
			var err error
			rec, err = Encode(row)
			if err != nil {
				return err
			}
		}
		if _, err := m.Insert(context.Background(), table, rec); err != nil {
			return err
		}
	}
	return nil
}

// Select implements Client.
func (m *Memory) Select(ctx context.Context, q Query) ([]Record, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	if err := m.fail("select", q.Table, q.Filters); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Record
	for _, rec := range m.tables[q.Table] {
		ok, err := matches(rec, q.Filters)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, project(rec, q.Columns))
		}
	}
	if len(q.Order) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, o := range q.Order {
				c := compare(out[i][o.Column], out[j][o.Column])
				if c == 0 {
					continue
				}
				if o.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Insert implements Client.
func (m *Memory) Insert(ctx context.Context, table string, rec Record) (Record, error) {
	if err := checkIdentifier(table); err != nil {
		return nil, err
	}
	if err := checkRecord(rec); err != nil {
		return nil, err
	}
	if err := m.fail("insert", table, nil); err != nil {
		return nil, err
	}
	stored := copyRecord(rec)
	if _, ok := stored["id"]; !ok {
		stored["id"] = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.tables[table] {
		if compare(existing["id"], stored["id"]) == 0 {
			return nil, fmt.Errorf("backend: insert %s: %w: id", table, ErrConflict)
		}
	}
	m.tables[table] = append(m.tables[table], stored)
	return copyRecord(stored), nil
}

// Update implements Client.
func (m *Memory) Update(ctx context.Context, table string, filters []Filter, patch Record) (int64, error) {
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
	if err := m.fail("update", table, filters); err != nil {
		return 0, err
	}
	normalized := copyRecord(patch)
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, rec := range m.tables[table] {
		ok, err := matches(rec, filters)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		for k, v := range normalized {
			rec[k] = v
		}
		n++
	}
	return n, nil
}

// Delete implements Client.
func (m *Memory) Delete(ctx context.Context, table string, filters []Filter) (int64, error) {
	if err := checkIdentifier(table); err != nil {
		return 0, err
	}
	if len(filters) == 0 {
		return 0, ErrUnfiltered
	}
	if err := checkFilters(filters); err != nil {
		return 0, err
	}
	if err := m.fail("delete", table, filters); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.tables[table]
	kept := rows[:0]
	var n int64
	for _, rec := range rows {
		ok, err := matches(rec, filters)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
			continue
		}
		kept = append(kept, rec)
	}
	m.tables[table] = kept
	return n, nil
}

// Ping implements Client.
func (m *Memory) Ping(ctx context.Context) error {
	return m.fail("ping", "", nil)
}

func (m *Memory) fail(op, table string, filters []Filter) error {
	if m.Fail == nil {
		return nil
	}
	return m.Fail(op, table, filters)
}

func copyRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = canonical(v)
	}
	return out
}

func project(rec Record, cols []string) Record {
	if len(cols) == 0 {
		return copyRecord(rec)
	}
	out := make(Record, len(cols))
	for _, col := range cols {
		out[col] = canonical(rec[col])
	}
	return out
}

func matches(rec Record, filters []Filter) (bool, error) {
	for _, f := range filters {
		got := rec[f.Column]
		switch f.Op {
		case OpEq:
			if compare(got, f.Value) != 0 {
				return false, nil
			}
		case OpNeq:
			if compare(got, f.Value) == 0 {
				return false, nil
			}
		case OpGt:
			if got == nil || compare(got, f.Value) <= 0 {
				return false, nil
			}
		case OpGte:
			if got == nil || compare(got, f.Value) < 0 {
				return false, nil
			}
		case OpLt:
			if got == nil || compare(got, f.Value) >= 0 {
				return false, nil
			}
		case OpLte:
			if got == nil || compare(got, f.Value) > 0 {
				return false, nil
			}
		case OpIn:
			found := false
			for _, candidate := range f.Value.([]any) {
				if compare(got, candidate) == 0 {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		default:
			return false, fmt.Errorf("%w: %q", ErrUnsupportedOp, f.Op)
		}
	}
	return true, nil
}

// compare orders two values by their JSON shape: numbers numerically, strings
// lexically (ISO dates sort correctly), everything else by encoded text.
func compare(a, b any) int {
	ca, cb := canonical(a), canonical(b)
	na, aNum := asDecimal(ca)
	nb, bNum := asDecimal(cb)
	if aNum && bNum {
		return na.Cmp(nb)
	}
	sa, aStr := ca.(string)
	sb, bStr := cb.(string)
	if aStr && bStr {
		return strings.Compare(sa, sb)
	}
	ra, _ := json.Marshal(ca)
	rb, _ := json.Marshal(cb)
	return strings.Compare(string(ra), string(rb))
}

func asDecimal(v any) (decimal.Decimal, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
