package source

import "github.com/shopspring/decimal"

const bytesPerGiB = 1 << 30

// QuotaColumns are the Hservice traffic quota columns in precedence order.
var QuotaColumns = []string{"STrA", "MTrA", "DTrA", "YTrA", "ExtraTraffic"}

// PackageBytes returns the first non-zero quota in QuotaColumns order.
// ok is false when every quota is zero, meaning the package is unmetered.
func PackageBytes(quotas ...int64) (int64, bool) {
	for _, v := range quotas {
		if v != 0 {
			return v, true
		}
	}
	return 0, false
}

// PackageSize is PackageBytes in GiB rounded to two decimals, or nil when unmetered.
func PackageSize(quotas ...int64) *float64 {
	b, ok := PackageBytes(quotas...)
	if !ok {
		return nil
	}
	gib := decimal.NewFromInt(b).Div(decimal.NewFromInt(bytesPerGiB)).Round(2).InexactFloat64()
	return &gib
}
