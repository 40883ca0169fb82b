package source

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/smallbiznis/ispreport/internal/observability/logger"
	"github.com/smallbiznis/ispreport/internal/observability/metrics"
	"github.com/smallbiznis/ispreport/internal/observability/tracing"
	"github.com/smallbiznis/ispreport/internal/table"
	"github.com/smallbiznis/ispreport/pkg/tenantctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TablePlaceholder is substituted with each candidate table name.
const TablePlaceholder = "{table_path}"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)

// Query is a parameterized template run against a tenant's source.
type Query struct {
	Template string
	Args     []any
}

// Result is the first non-empty candidate result. TableName is the candidate that served it.
type Result struct {
	Tenant    string
	TableName string
	Data      *table.Table
}

type Executor interface {
	Run(ctx context.Context, tenant string, q Query, candidates []string) (*Result, error)
}

type ExecutorParam struct {
	fx.In

	Registry *Registry
	Log      *zap.Logger
	Metrics  *metrics.CacheMetrics `optional:"true"`
}

type executor struct {
	registry *Registry
	log      *zap.Logger
	metrics  *metrics.CacheMetrics
	tracer   trace.Tracer
}

func NewExecutor(p ExecutorParam) Executor {
	return &executor{
		registry: p.Registry,
		log:      p.Log.Named("source.executor"),
		metrics:  p.Metrics,
		tracer:   tracing.Tracer("source"),
	}
}

// Run tries candidates in order and returns the first non-empty result.
// When every candidate is empty the result is empty with a nil error. When
// every candidate fails the last failure is returned as a ConnectivityError.
func (e *executor) Run(ctx context.Context, tenant string, q Query, candidates []string) (*Result, error) {
	conn, name, err := e.registry.DB(tenant)
	if err != nil {
		e.metrics.IncFallback(tenant, "failed")
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "source.Run", trace.WithAttributes(
		attribute.String("tenant", name),
		attribute.Int("candidates", len(candidates)),
	))
	defer span.End()
	ctx = tenantctx.WithTenant(ctx, name)
	log := logger.WithContext(ctx, e.log)

	if len(candidates) == 0 {
		t, err := query(ctx, conn, q.Template, q.Args)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "query failed")
			e.metrics.IncFallback(name, "failed")
			return nil, &ConnectivityError{Tenant: name, Err: err}
		}
		e.metrics.IncFallback(name, outcome(0, t.Len()))
		return &Result{Tenant: name, Data: t}, nil
	}

	var (
		lastErr   error
		lastTable string
		failures  int
	)
	for i, candidate := range candidates {
		if !tableNamePattern.MatchString(candidate) {
			lastErr, lastTable = fmt.Errorf("%w: %q", ErrInvalidTableName, candidate), candidate
			failures++
			log.Warn("skipping invalid candidate table", zap.String("table", candidate))
			continue
		}
		sql := strings.ReplaceAll(q.Template, TablePlaceholder, candidate)
		t, err := query(ctx, conn, sql, q.Args)
		if err != nil {
			lastErr, lastTable = err, candidate
			failures++
			log.Warn("candidate table failed", zap.String("table", candidate), zap.Error(err))
			continue
		}
		if t.Len() == 0 {
			log.Debug("candidate table empty", zap.String("table", candidate))
			continue
		}
		span.SetAttributes(attribute.String("table", candidate), attribute.Int("rows", t.Len()))
		e.metrics.IncFallback(name, outcome(i, t.Len()))
		return &Result{Tenant: name, TableName: candidate, Data: t}, nil
	}

	if failures == len(candidates) {
		span.RecordError(lastErr)
		span.SetStatus(codes.Error, "all candidates failed")
		e.metrics.IncFallback(name, "failed")
		return nil, &ConnectivityError{Tenant: name, Table: lastTable, Err: lastErr}
	}
	e.metrics.IncFallback(name, "empty")
	return &Result{Tenant: name, Data: table.Empty()}, nil
}

func outcome(index, rows int) string {
	switch {
	case rows == 0:
		return "empty"
	case index == 0:
		return "primary"
	default:
		return "fallback"
	}
}

func query(ctx context.Context, conn *gorm.DB, sql string, args []any) (*table.Table, error) {
	rows, err := conn.WithContext(ctx).Raw(sql, args...).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := table.New(columns, nil)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(table.Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out.Rows = append(out.Rows, row)
	}
	return out, rows.Err()
}
