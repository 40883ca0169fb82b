package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ispreport/internal/config"
	"github.com/smallbiznis/ispreport/internal/observability/logger"
	"github.com/smallbiznis/ispreport/internal/observability/metrics"
	"github.com/smallbiznis/ispreport/internal/observability/tracing"
	"github.com/smallbiznis/ispreport/internal/report/domain"
	"github.com/smallbiznis/ispreport/internal/report/filter"
	"github.com/smallbiznis/ispreport/internal/report/summary"
	"github.com/smallbiznis/ispreport/internal/source"
	"github.com/smallbiznis/ispreport/internal/table"
	"github.com/smallbiznis/ispreport/pkg/tenantctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Config   config.Config
	Executor source.Executor
	Policy   *config.PolicyHolder  `optional:"true"`
	Metrics  *metrics.CacheMetrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	executor source.Executor
	tables   []string
	timeout  time.Duration
	policy   *config.PolicyHolder
	metrics  *metrics.CacheMetrics
	tracer   trace.Tracer
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("report.service"),
		executor: p.Executor,
		tables:   p.Config.Report.TablePriority,
		timeout:  p.Config.Report.QueryTimeout,
		policy:   p.Policy,
		metrics:  p.Metrics,
		tracer:   tracing.Tracer("report"),
	}
}

func (s *Service) Generate(ctx context.Context, req domain.Request) (*domain.Result, error) {
	if req.Limit < 0 {
		return nil, domain.ErrInvalidLimit
	}
	creators := ParseCreators(req.Creators)
	if len(creators) == 0 && !req.Privileged {
		return nil, domain.ErrNoCreators
	}

	ctx, span := s.tracer.Start(ctx, "report.Generate", trace.WithAttributes(
		attribute.String("tenant", req.Tenant),
		attribute.Int("creators", len(creators)),
	))
	defer span.End()
	if req.Tenant != "" {
		ctx = tenantctx.WithTenant(ctx, req.Tenant)
	}
	log := logger.WithContext(ctx, s.log)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result := &domain.Result{
		Tenant:   req.Tenant,
		Creators: creators,
		Sources:  map[string]string{},
	}

	targets := make([]*string, 0, len(creators))
	for i := range creators {
		targets = append(targets, &creators[i])
	}
	if len(targets) == 0 {
		targets = append(targets, nil)
	}

	label := s.policy.Current().SiteCreatorLabel
	var parts []*table.Table
	for _, creator := range targets {
		q := buildQuery(label, creator, req.Criteria.Status, req.Limit)
		res, err := s.executor.Run(ctx, req.Tenant, q, s.tables)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "query failed")
			log.Warn("report query failed", zap.Stringp("creator", creator), zap.Error(err))
			return nil, fmt.Errorf("report query: %w", err)
		}
		if result.Tenant == "" {
			result.Tenant = res.Tenant
		}
		if res.Data.Len() == 0 {
			continue
		}
		parts = append(parts, res.Data)
		result.Sources[creatorLabel(creator)] = res.TableName
	}

	data := table.Concat(parts...)
	s.metrics.ObserveReportRows("query", data.Len())
	data = derivePackage(data)

	data = filter.NewPipeline(req.Criteria).Apply(data, s.metrics.ObserveReportRows)
	sortRows(data)
	result.Data = data

	if req.Summary {
		r := summary.Build(data)
		result.Summary = &r
	}
	if req.Totals {
		result.Limited, result.Unlimited = summary.Details(data)
	}

	span.SetAttributes(attribute.Int("rows", data.Len()))
	log.Info("report generated",
		zap.String("tenant", result.Tenant),
		zap.Int("creators", len(creators)),
		zap.Int("rows", data.Len()),
	)
	return result, nil
}

func creatorLabel(creator *string) string {
	if creator == nil {
		return "all"
	}
	return *creator
}

// derivePackage turns the raw quota columns into PackageBytes and PackageValue,
// then fills Package from PackageValue when absent and rounds it to two places.
func derivePackage(t *table.Table) *table.Table {
	if t.Has(source.QuotaColumns[0]) {
		quotas := func(r table.Row) []int64 {
			return lo.Map(source.QuotaColumns, func(col string, _ int) int64 {
				v, _ := table.Float(r[col])
				return int64(v)
			})
		}
		t.AddColumn("PackageBytes", func(r table.Row) any {
			if b, ok := source.PackageBytes(quotas(r)...); ok {
				return b
			}
			return nil
		})
		t.AddColumn("PackageValue", func(r table.Row) any {
			if gib := source.PackageSize(quotas(r)...); gib != nil {
				return *gib
			}
			return nil
		})
		t = t.DropColumns(source.QuotaColumns...)
	}

	if !t.Has("Package") {
		if !t.Has("PackageValue") {
			return t
		}
		t.AddColumn("Package", func(r table.Row) any { return r["PackageValue"] })
	}
	t.AddColumn("Package", func(r table.Row) any {
		v, ok := table.Float(r["Package"])
		if !ok {
			return r["Package"]
		}
		return decimal.NewFromFloat(v).Round(2).InexactFloat64()
	})
	return t
}

// sortRows orders by creator, then by row id ascending, else by creation date
// descending. Missing values sort last. The sort is stable.
func sortRows(t *table.Table) {
	creatorCol, ok := summary.CreatorColumn(t)
	if !ok {
		return
	}
	idCol, hasID := t.FirstColumn("UserServiceID", "RowID")
	dateCol, hasDate := t.FirstColumn("CreateDT", "CreateDate")

	slices.SortStableFunc(t.Rows, func(a, b table.Row) int {
		if c := compareText(a[creatorCol], b[creatorCol]); c != 0 {
			return c
		}
		switch {
		case hasID:
			return compareNumber(a[idCol], b[idCol])
		case hasDate:
			return compareTime(b[dateCol], a[dateCol])
		}
		return 0
	})
}

func compareText(a, b any) int {
	x, okA := table.String(a)
	y, okB := table.String(b)
	if c := missingLast(okA, okB); c != 0 || !okA {
		return c
	}
	return strings.Compare(x, y)
}

func compareNumber(a, b any) int {
	x, okA := table.Float(a)
	y, okB := table.Float(b)
	if c := missingLast(okA, okB); c != 0 || !okA {
		return c
	}
	return cmp.Compare(x, y)
}

// compareTime is called with swapped operands for descending order, so missing
// values are pushed last by inverting the missing rule.
func compareTime(a, b any) int {
	x, okA := table.Time(a)
	y, okB := table.Time(b)
	if c := missingLast(okA, okB); c != 0 || !okA {
		return -c
	}
	return x.Compare(y)
}

func missingLast(okA, okB bool) int {
	switch {
	case okA && !okB:
		return -1
	case !okA && okB:
		return 1
	}
	return 0
}
