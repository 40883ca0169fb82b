// Package summary splits report rows into limited and unlimited usage and totals them per creator.
package summary

import (
	"regexp"

	"github.com/smallbiznis/ispreport/internal/table"
)

// Service names are mostly Persian, so digits and word boundaries are
// Unicode-aware: "۵۰ GB" is a size token and "GBماهانه" is not.
const (
	wordChar  = `\p{L}\p{N}_`
	wordEnd   = `(?:[^` + wordChar + `]|$)`
	wordStart = `(?:^|[^` + wordChar + `])`
)

var (
	gbPattern  = regexp.MustCompile(`(?i)\p{Nd}+(?:\.\p{Nd}+)?[\s\p{Z}_-]*(?:gb|gig)` + wordEnd)
	ddcPattern = regexp.MustCompile(`(?i)` + wordStart + `DDC` + wordEnd)
)

// SizeColumns are checked in order for the measure that decides classification.
var SizeColumns = []string{"PackageBytes", "Package", "PackageValue"}

// Classify reports, per row, whether the row is unlimited usage.
//
// A row is unlimited when its size is missing or not positive and its service
// name either has no "<n> GB" token or carries the DDC marker. Without any size
// column every row is limited. Without a ServiceName column the size alone decides.
func Classify(t *table.Table) []bool {
	mask := make([]bool, t.Len())
	sizeCol, ok := t.FirstColumn(SizeColumns...)
	if !ok {
		return mask
	}
	hasName := t.Has("ServiceName")

	for i, r := range t.Rows {
		size, ok := table.Float(r[sizeCol])
		if ok && size > 0 {
			continue
		}
		if !hasName {
			mask[i] = true
			continue
		}
		name, _ := table.String(r["ServiceName"])
		mask[i] = !gbPattern.MatchString(name) || ddcPattern.MatchString(name)
	}
	return mask
}

// Partition splits t by the unlimited mask. Both halves keep row order and columns.
func Partition(t *table.Table, unlimited []bool) (limited, rest *table.Table) {
	var l, u []table.Row
	for i, r := range t.Rows {
		if i < len(unlimited) && unlimited[i] {
			u = append(u, r)
		} else {
			l = append(l, r)
		}
	}
	return t.WithRows(l), t.WithRows(u)
}

// CreatorColumn returns the column naming the account that created each row.
func CreatorColumn(t *table.Table) (string, bool) {
	return t.FirstColumn("Creator", "rs_username")
}

// ValueColumn returns the column carrying the per-row size in GiB.
func ValueColumn(t *table.Table) (string, bool) {
	return t.FirstColumn("Package", "PackageValue")
}
