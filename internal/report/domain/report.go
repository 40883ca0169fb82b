package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/ispreport/internal/report/filter"
	"github.com/smallbiznis/ispreport/internal/report/summary"
	"github.com/smallbiznis/ispreport/internal/table"
)

var (
	ErrNoCreators   = errors.New("no_creators")
	ErrInvalidLimit = errors.New("invalid_limit")
)

// Request describes one report run. Creators is free text: names separated by
// commas, semicolons or their Arabic forms. Only privileged callers may omit it.
type Request struct {
	Tenant     string          `json:"tenant"`
	Creators   string          `json:"creators"`
	Privileged bool            `json:"privileged"`
	Limit      int             `json:"limit"`
	Criteria   filter.Criteria `json:"criteria"`
	Summary    bool            `json:"summary"`
	Totals     bool            `json:"totals"`
}

// Result is the filtered, sorted row set plus the optional summary and
// detail tables with totals.
type Result struct {
	Tenant    string            `json:"tenant"`
	Creators  []string          `json:"creators"`
	Sources   map[string]string `json:"sources"`
	Data      *table.Table      `json:"data"`
	Summary   *summary.Report   `json:"summary,omitempty"`
	Limited   *table.Table      `json:"limited,omitempty"`
	Unlimited *table.Table      `json:"unlimited,omitempty"`
}

type Service interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}
