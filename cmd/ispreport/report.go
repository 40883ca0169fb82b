package main

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/ispreport/internal/report/domain"
	"github.com/smallbiznis/ispreport/internal/report/filter"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var (
		req       domain.Request
		dateOp    string
		dateValue string
		dateStart string
		dateEnd   string
		serialOp  string
		serialVal float64
		serialMin float64
		serialMax float64
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a usage report and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := dateCriteria(dateOp, dateValue, dateStart, dateEnd)
			if err != nil {
				return err
			}
			req.Criteria.Date = date
			req.Criteria.Serial = filter.NumericCriteria{Op: serialOp}
			if cmd.Flags().Changed("serial") {
				req.Criteria.Serial.Value = &serialVal
			}
			if cmd.Flags().Changed("serial-min") {
				req.Criteria.Serial.Min = &serialMin
			}
			if cmd.Flags().Changed("serial-max") {
				req.Criteria.Serial.Max = &serialMax
			}

			var svc domain.Service
			return runOnce(cmd.Context(), func(ctx context.Context) error {
				res, err := svc.Generate(ctx, req)
				if err != nil {
					return err
				}
				return writeJSON(res)
			}, &svc)
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Tenant, "tenant", "", "Tenant (source) name (default: first configured)")
	f.StringVar(&req.Creators, "creators", "", "Creator names separated by , or ;")
	f.BoolVar(&req.Privileged, "all", false, "Allow a report without creators")
	f.IntVar(&req.Limit, "limit", 0, "Row limit per creator (0 = no limit)")
	f.StringVar(&req.Criteria.Status, "status", "", "Service status filter")
	f.StringVar(&serialOp, "serial-op", "", "Serial operator: =, <, >, <=, >=, BETWEEN, NONE")
	f.Float64Var(&serialVal, "serial", 0, "Serial value")
	f.Float64Var(&serialMin, "serial-min", 0, "Serial range start")
	f.Float64Var(&serialMax, "serial-max", 0, "Serial range end")
	f.StringVar(&dateOp, "date-op", "", "Date operator: EXACT, =, <, >, <=, >=, BETWEEN, NONE")
	f.StringVar(&dateValue, "date", "", "Date value (YYYY-MM-DD)")
	f.StringVar(&dateStart, "date-start", "", "Date range start (YYYY-MM-DD)")
	f.StringVar(&dateEnd, "date-end", "", "Date range end (YYYY-MM-DD)")
	f.BoolVar(&req.Summary, "summary", false, "Include limited/unlimited summary")
	f.BoolVar(&req.Totals, "totals", false, "Include detail tables with creator totals")
	return cmd
}

func dateCriteria(op, value, start, end string) (filter.DateCriteria, error) {
	out := filter.DateCriteria{Op: op}
	for _, field := range []struct {
		raw  string
		dest **time.Time
	}{
		{value, &out.Value},
		{start, &out.Start},
		{end, &out.End},
	} {
		if field.raw == "" {
			continue
		}
		t, err := time.Parse(time.DateOnly, field.raw)
		if err != nil {
			return filter.DateCriteria{}, fmt.Errorf("invalid date %q: %w", field.raw, err)
		}
		*field.dest = &t
	}
	return out, nil
}
