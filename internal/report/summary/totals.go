package summary

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/smallbiznis/ispreport/internal/table"
)

// CountColumn holds row counts on appended total rows.
const CountColumn = "Count"

// WithTotals appends one "<creator> Total" row per creator, ordered by creator,
// and a final "Grand Total" row after the detail rows. Total rows carry the
// rounded size sum and row count; their other cells are blank. Tables without a
// creator or size column, or without rows, are returned unchanged.
func WithTotals(t *table.Table) *table.Table {
	if t.Len() == 0 {
		return t
	}
	creatorCol, ok := CreatorColumn(t)
	if !ok {
		return t
	}
	valueCol, ok := ValueColumn(t)
	if !ok {
		return t
	}

	columns := slices.Clone(t.Columns)
	if !slices.Contains(columns, CountColumn) {
		columns = append(columns, CountColumn)
	}
	blank := func() table.Row {
		r := make(table.Row, len(columns))
		for _, c := range columns {
			r[c] = ""
		}
		return r
	}

	counts := make(map[string]int)
	sums := make(map[string]decimal.Decimal)
	grand := decimal.Zero
	for _, r := range t.Rows {
		creator, _ := table.String(r[creatorCol])
		counts[creator]++
		if v, ok := table.Float(r[valueCol]); ok {
			d := decimal.NewFromFloat(v)
			sums[creator] = sums[creator].Add(d)
			grand = grand.Add(d)
		}
	}

	creators := make([]string, 0, len(counts))
	for c := range counts {
		creators = append(creators, c)
	}
	slices.Sort(creators)

	rows := slices.Clone(t.Rows)
	for _, c := range creators {
		r := blank()
		r[creatorCol] = c + " Total"
		r[valueCol] = sums[c].Round(2).InexactFloat64()
		r[CountColumn] = counts[c]
		rows = append(rows, r)
	}
	r := blank()
	r[creatorCol] = grandTotalLabel
	r[valueCol] = grand.Round(2).InexactFloat64()
	r[CountColumn] = t.Len()
	rows = append(rows, r)

	return table.New(columns, rows)
}

// Details splits t into limited and unlimited detail tables, each with totals.
func Details(t *table.Table) (limited, unlimited *table.Table) {
	l, u := Partition(t, Classify(t))
	return WithTotals(l), WithTotals(u)
}
