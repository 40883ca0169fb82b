package service

import (
	"strings"

	"github.com/samber/lo"
	"github.com/smallbiznis/ispreport/internal/source"
)

const reportQuery = `
SELECT
    TName.User_ServiceBase_Id AS RowID,
    IF(TName.Creator_Id = 0, ?, Hrc.ResellerName) AS Creator,
    Hse.ServiceName AS ServiceName,
    Hu.Username AS Username,
    DATE_FORMAT(TName.CDT, '%Y-%m-%d %H:%i:%s') AS CreateDT,
    TName.ServiceStatus AS ServiceStatus,
    FORMAT(TName.ServicePrice, 0) AS ServicePrice,
    DATE_FORMAT(NULLIF(TName.StartDate, '0000-00-00'), '%Y-%m-%d') AS StartDate,
    DATE_FORMAT(NULLIF(TName.EndDate, '0000-00-00'), '%Y-%m-%d') AS EndDate,
    Hse.STrA AS STrA,
    Hse.MTrA AS MTrA,
    Hse.DTrA AS DTrA,
    Hse.YTrA AS YTrA,
    Hse.ExtraTraffic AS ExtraTraffic
FROM ` + source.TablePlaceholder + ` TName
JOIN Huser Hu ON TName.User_Id = Hu.User_Id
LEFT JOIN Hreseller Hrc ON TName.Creator_Id = Hrc.Reseller_Id
LEFT JOIN Hservice Hse ON TName.Service_Id = Hse.Service_Id
WHERE (TRIM(LOWER(Hrc.ResellerName)) = TRIM(LOWER(?)) OR ? IS NULL)`

// buildQuery renders the per-creator query. A nil creator matches every row.
func buildQuery(siteLabel string, creator *string, status string, limit int) source.Query {
	var sb strings.Builder
	sb.WriteString(reportQuery)
	args := []any{siteLabel, creator, creator}

	if s := strings.TrimSpace(status); s != "" && !strings.EqualFold(s, "none") {
		sb.WriteString("\n  AND TName.ServiceStatus = ?")
		args = append(args, s)
	}
	sb.WriteString("\nORDER BY TName.CDT DESC")
	if limit > 0 {
		sb.WriteString("\nLIMIT ?")
		args = append(args, limit)
	}
	return source.Query{Template: sb.String(), Args: args}
}

var creatorSeparators = strings.NewReplacer("،", ",", "؛", ",", ";", ",")

// ParseCreators splits free text into distinct trimmed creator names, keeping first occurrence order.
func ParseCreators(raw string) []string {
	parts := strings.Split(creatorSeparators.Replace(raw), ",")
	names := lo.FilterMap(parts, func(p string, _ int) (string, bool) {
		p = strings.TrimSpace(p)
		return p, p != ""
	})
	return lo.Uniq(names)
}
