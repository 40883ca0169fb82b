// Package table is the tabular result shape shared by the source executor and the report engine.
package table

import (
	"slices"

	"github.com/samber/lo"
)

// Row maps a column name to its scanned value.
type Row map[string]any

// Table is an ordered set of columns and the rows carrying them.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

func New(columns []string, rows []Row) *Table {
	if columns == nil {
		columns = []string{}
	}
	if rows == nil {
		rows = []Row{}
	}
	return &Table{Columns: columns, Rows: rows}
}

func Empty() *Table {
	return New(nil, nil)
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *Table) Has(column string) bool {
	if t == nil {
		return false
	}
	return slices.Contains(t.Columns, column)
}

// FirstColumn returns the first candidate present in the table.
func (t *Table) FirstColumn(candidates ...string) (string, bool) {
	for _, c := range candidates {
		if t.Has(c) {
			return c, true
		}
	}
	return "", false
}

// Filter keeps rows for which keep returns true, in their original order.
func (t *Table) Filter(keep func(Row) bool) *Table {
	rows := lo.Filter(t.Rows, func(r Row, _ int) bool { return keep(r) })
	return New(slices.Clone(t.Columns), rows)
}

// WithRows returns a table with the same columns and the given rows.
func (t *Table) WithRows(rows []Row) *Table {
	return New(slices.Clone(t.Columns), rows)
}

// DropColumns removes the named columns from the header and every row.
func (t *Table) DropColumns(columns ...string) *Table {
	drop := lo.Filter(columns, func(c string, _ int) bool { return t.Has(c) })
	if len(drop) == 0 {
		return t
	}
	cols := lo.Without(t.Columns, drop...)
	rows := make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		out := make(Row, len(r))
		for k, v := range r {
			if !slices.Contains(drop, k) {
				out[k] = v
			}
		}
		rows[i] = out
	}
	return New(cols, rows)
}

// AddColumn appends a column to the header if missing and fills it per row.
func (t *Table) AddColumn(column string, value func(Row) any) {
	if !t.Has(column) {
		t.Columns = append(t.Columns, column)
	}
	for _, r := range t.Rows {
		r[column] = value(r)
	}
}

// Concat appends the rows of every table. Columns are the ordered union of all headers.
func Concat(tables ...*Table) *Table {
	out := Empty()
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Columns {
			if !slices.Contains(out.Columns, c) {
				out.Columns = append(out.Columns, c)
			}
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out
}
