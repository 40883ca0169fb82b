package summary

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/smallbiznis/ispreport/internal/table"
)

const grandTotalLabel = "Grand Total"

// ServiceTotal is one (creator, service) group.
type ServiceTotal struct {
	ServiceName string  `json:"service_name"`
	Count       int     `json:"count"`
	SumGB       float64 `json:"sum_gb"`
}

// CreatorTotal holds a creator's groups and their totals.
type CreatorTotal struct {
	Creator    string         `json:"creator"`
	TotalCount int            `json:"total_count"`
	TotalGB    float64        `json:"total_gb"`
	Details    []ServiceTotal `json:"details"`
}

// Summary is the aggregation of one partition.
type Summary struct {
	Creators   []CreatorTotal `json:"creators"`
	GrandCount int            `json:"grand_count"`
	GrandTotal float64        `json:"grand_total"`
}

// Report carries both partitions of a result set.
type Report struct {
	Limited   *Summary `json:"limited"`
	Unlimited *Summary `json:"unlimited"`
}

// Build classifies t and aggregates each partition.
func Build(t *table.Table) Report {
	limited, unlimited := Partition(t, Classify(t))
	return Report{
		Limited:   Aggregate(limited),
		Unlimited: Aggregate(unlimited),
	}
}

type groupKey struct {
	creator string
	service string
}

// Aggregate groups rows by creator and service name. Group sums are rounded to
// two places and creator and grand totals are sums of the rounded values, so
// every level reconciles exactly. Non-numeric sizes count as rows but add nothing.
func Aggregate(t *table.Table) *Summary {
	out := &Summary{Creators: []CreatorTotal{}}
	creatorCol, ok := CreatorColumn(t)
	if !ok || !t.Has("ServiceName") {
		return out
	}
	valueCol, ok := ValueColumn(t)
	if !ok {
		return out
	}

	counts := make(map[groupKey]int)
	sums := make(map[groupKey]decimal.Decimal)
	for _, r := range t.Rows {
		creator, _ := table.String(r[creatorCol])
		service, _ := table.String(r["ServiceName"])
		k := groupKey{creator: creator, service: service}
		counts[k]++
		if v, ok := table.Float(r[valueCol]); ok {
			sums[k] = sums[k].Add(decimal.NewFromFloat(v))
		}
	}

	keys := make([]groupKey, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b groupKey) int {
		return cmp.Or(cmp.Compare(a.creator, b.creator), cmp.Compare(a.service, b.service))
	})

	creatorSums := make([]decimal.Decimal, 0)
	for _, k := range keys {
		if n := len(out.Creators); n == 0 || out.Creators[n-1].Creator != k.creator {
			out.Creators = append(out.Creators, CreatorTotal{Creator: k.creator, Details: []ServiceTotal{}})
			creatorSums = append(creatorSums, decimal.Zero)
		}
		i := len(out.Creators) - 1
		c := &out.Creators[i]
		sum := sums[k].Round(2)
		c.Details = append(c.Details, ServiceTotal{
			ServiceName: k.service,
			Count:       counts[k],
			SumGB:       sum.InexactFloat64(),
		})
		c.TotalCount += counts[k]
		creatorSums[i] = creatorSums[i].Add(sum)
		out.GrandCount += counts[k]
	}

	grand := decimal.Zero
	for i := range out.Creators {
		out.Creators[i].TotalGB = creatorSums[i].InexactFloat64()
		grand = grand.Add(creatorSums[i])
	}
	out.GrandTotal = grand.InexactFloat64()
	return out
}

// Flatten renders the summary as Creator, ServiceName, SumGB, Count rows: each
// creator's groups followed by a "<creator> Total" row, then a "Grand Total" row.
// An empty summary flattens to an empty table with the header only.
func (s *Summary) Flatten() *table.Table {
	columns := []string{"Creator", "ServiceName", "SumGB", "Count"}
	if s == nil || len(s.Creators) == 0 {
		return table.New(columns, nil)
	}

	var rows []table.Row
	for _, c := range s.Creators {
		for _, d := range c.Details {
			rows = append(rows, table.Row{
				"Creator":     c.Creator,
				"ServiceName": d.ServiceName,
				"SumGB":       d.SumGB,
				"Count":       d.Count,
			})
		}
		rows = append(rows, table.Row{
			"Creator":     c.Creator + " Total",
			"ServiceName": "",
			"SumGB":       c.TotalGB,
			"Count":       c.TotalCount,
		})
	}
	rows = append(rows, table.Row{
		"Creator":     grandTotalLabel,
		"ServiceName": "",
		"SumGB":       s.GrandTotal,
		"Count":       s.GrandCount,
	})
	return table.New(columns, rows)
}
