package filter

import (
	"cmp"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/smallbiznis/ispreport/internal/table"
)

// Stage is one narrowing step. Stages never reorder surviving rows.
type Stage interface {
	Name() string
	Apply(t *table.Table) *table.Table
}

// NumericCriteria selects rows by a numeric id column.
type NumericCriteria struct {
	Enabled bool     `json:"enabled"`
	Op      string   `json:"op"`
	Value   *float64 `json:"value"`
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`
}

func (c NumericCriteria) hasOperands() bool {
	return c.Value != nil || c.Min != nil || c.Max != nil
}

// DateCriteria selects rows by the calendar date of a timestamp column.
type DateCriteria struct {
	Enabled bool       `json:"enabled"`
	Op      string     `json:"op"`
	Value   *time.Time `json:"value"`
	Start   *time.Time `json:"start"`
	End     *time.Time `json:"end"`
}

func (c DateCriteria) hasOperands() bool {
	return c.Value != nil || c.Start != nil || c.End != nil
}

// SerialFilter filters on the first of Columns present in the table.
// With ValuesOnly the Enabled flag is ignored and only operands turn it on.
type SerialFilter struct {
	StageName  string
	Columns    []string
	Criteria   NumericCriteria
	ValuesOnly bool
}

func (f SerialFilter) Name() string { return f.StageName }

func (f SerialFilter) Apply(t *table.Table) *table.Table {
	c := f.Criteria
	enabled := c.hasOperands() || (c.Enabled && !f.ValuesOnly)
	if !enabled {
		return t
	}
	op, ok := ParseOperator(c.Op)
	if !ok || op == OpNone {
		return t
	}
	col, ok := t.FirstColumn(f.Columns...)
	if !ok {
		return t
	}
	op, ok = correct(op, c.Value != nil, c.Min != nil && c.Max != nil)
	if !ok {
		return t
	}

	return t.Filter(func(r table.Row) bool {
		v, ok := table.Float(r[col])
		if !ok {
			return false
		}
		if op == OpBetween {
			return v >= *c.Min && v <= *c.Max
		}
		return compare(op, cmp.Compare(v, *c.Value))
	})
}

// DateFilter compares the date component of the first of Columns present.
type DateFilter struct {
	Columns  []string
	Criteria DateCriteria
}

func (f DateFilter) Name() string { return "date" }

func (f DateFilter) Apply(t *table.Table) *table.Table {
	c := f.Criteria
	if !c.Enabled && !c.hasOperands() {
		return t
	}
	op, ok := ParseOperator(c.Op)
	if !ok || op == OpNone {
		return t
	}
	col, ok := t.FirstColumn(f.Columns...)
	if !ok {
		return t
	}
	op, ok = correct(op, c.Value != nil, c.Start != nil && c.End != nil)
	if !ok {
		return t
	}

	var value, start, end time.Time
	if c.Value != nil {
		value, _ = table.Date(*c.Value)
	}
	if op == OpBetween {
		start, _ = table.Date(*c.Start)
		end, _ = table.Date(*c.End)
	}

	return t.Filter(func(r table.Row) bool {
		d, ok := table.Date(r[col])
		if !ok {
			return false
		}
		if op == OpBetween {
			return !d.Before(start) && !d.After(end)
		}
		return compare(op, d.Compare(value))
	})
}

// PasswordColumns are removed from pending-status results.
var PasswordColumns = []string{"password", "Password", "passwd", "Passwd"}

// StatusFilter keeps rows whose status matches, trimmed and case-insensitive.
// For the pending status it also keeps only the latest row per user and
// removes password columns.
type StatusFilter struct {
	Status      string
	Column      string
	UserColumn  string
	DateColumns []string
}

func (f StatusFilter) Name() string { return "status" }

func (f StatusFilter) Apply(t *table.Table) *table.Table {
	want := strings.ToLower(strings.TrimSpace(f.Status))
	if want == "" || want == "none" || !t.Has(f.Column) {
		return t
	}

	out := t.Filter(func(r table.Row) bool {
		s, ok := table.String(r[f.Column])
		return ok && strings.ToLower(strings.TrimSpace(s)) == want
	})
	if want != "pending" {
		return out
	}

	if dateCol, ok := out.FirstColumn(f.DateColumns...); ok && out.Has(f.UserColumn) {
		out = latestPerUser(out, f.UserColumn, dateCol)
	}
	return out.DropColumns(PasswordColumns...)
}

// latestPerUser keeps the row with the latest timestamp per user. Ties and
// unparseable timestamps favour the earlier row. Survivors keep their order.
func latestPerUser(t *table.Table, userCol, dateCol string) *table.Table {
	type best struct {
		index int
		at    time.Time
		valid bool
	}
	winners := make(map[string]best)
	for i, r := range t.Rows {
		user, _ := table.String(r[userCol])
		at, valid := table.Time(r[dateCol])
		cur, seen := winners[user]
		if !seen || (valid && (!cur.valid || at.After(cur.at))) {
			winners[user] = best{index: i, at: at, valid: valid}
		}
	}

	keep := lo.SliceToMap(lo.Values(winners), func(w best) (int, struct{}) {
		return w.index, struct{}{}
	})
	return t.WithRows(lo.Filter(t.Rows, func(_ table.Row, i int) bool {
		_, ok := keep[i]
		return ok
	}))
}
