package domain

import (
	"fmt"
	"strings"
	"time"
)

// ColumnKind identifies the value type stored in a Column.
type ColumnKind int

const (
	KindFloat ColumnKind = iota
	KindString
	KindTime
)

// Column is a single named column of an observation table. Exactly one of
// Floats, Strings, or Times is populated, chosen by Kind. Valid runs parallel
// to the value slice: a false entry marks a cell that holds a missing-value
// sentinel rather than a real measurement. The sentinel itself is retained in
// the value slice for inspection.
type Column struct {
	Name    string
	Kind    ColumnKind
	Floats  []float64
	Strings []string
	Times   []time.Time
	Valid   []bool
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	switch c.Kind {
	case KindString:
		return len(c.Strings)
	case KindTime:
		return len(c.Times)
	default:
		return len(c.Floats)
	}
}

// Table is a column-oriented observation table. All columns share one row
// count; row order reflects file order (ascending time for time-series files,
// network order for snapshot files).
type Table struct {
	Columns []Column
}

// NumRows returns the shared row count, 0 for an empty table.
func (t *Table) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// Column returns the column with the given name, matched case-insensitively,
// or nil if no such column exists.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, name) {
			return &t.Columns[i]
		}
	}
	return nil
}

// HasColumn reports whether a column with the given name exists.
func (t *Table) HasColumn(name string) bool {
	return t.Column(name) != nil
}

// AppendColumn adds a column after the existing columns. The new column must
// match the table's row count unless the table is empty.
func (t *Table) AppendColumn(c Column) error {
	if len(t.Columns) > 0 && c.Len() != t.NumRows() {
		return fmt.Errorf("append column %s: %d rows, table has %d", c.Name, c.Len(), t.NumRows())
	}
	t.Columns = append(t.Columns, c)
	return nil
}

// Concat concatenates two tables row-wise: all of a's rows followed by all of
// b's, preserving each table's internal order. Both tables must have the same
// columns in the same order. No deduplication or overlap check is performed.
func Concat(a, b *Table) (*Table, error) {
	if len(a.Columns) != len(b.Columns) {
		return nil, fmt.Errorf("concat: column count mismatch: %d vs %d", len(a.Columns), len(b.Columns))
	}

	out := &Table{Columns: make([]Column, len(a.Columns))}
	for i := range a.Columns {
		ca, cb := &a.Columns[i], &b.Columns[i]
		if !strings.EqualFold(ca.Name, cb.Name) || ca.Kind != cb.Kind {
			return nil, fmt.Errorf("concat: column %d mismatch: %s/%s", i, ca.Name, cb.Name)
		}

		merged := Column{Name: ca.Name, Kind: ca.Kind}
		switch ca.Kind {
		case KindString:
			merged.Strings = append(append([]string{}, ca.Strings...), cb.Strings...)
		case KindTime:
			merged.Times = append(append([]time.Time{}, ca.Times...), cb.Times...)
		default:
			merged.Floats = append(append([]float64{}, ca.Floats...), cb.Floats...)
		}
		merged.Valid = append(append([]bool{}, ca.Valid...), cb.Valid...)
		out.Columns[i] = merged
	}
	return out, nil
}
