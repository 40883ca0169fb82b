package source

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CheckResult is the reachability of one tenant source.
type CheckResult struct {
	Tenant  string        `json:"tenant"`
	OK      bool          `json:"ok"`
	Latency time.Duration `json:"latency_ns"`
	Error   string        `json:"error,omitempty"`
}

// Ping opens the tenant's connection if needed and pings it within timeout.
func (r *Registry) Ping(ctx context.Context, tenant string, timeout time.Duration) error {
	conn, _, err := r.DB(tenant)
	if err != nil {
		return err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return &ConnectivityError{Tenant: tenant, Err: err}
	}
	return nil
}

// CheckAll pings every configured tenant sequentially.
func (r *Registry) CheckAll(ctx context.Context, timeout time.Duration) []CheckResult {
	results := make([]CheckResult, 0, len(r.order))
	for _, name := range r.order {
		start := time.Now()
		err := r.Ping(ctx, name, timeout)
		res := CheckResult{Tenant: name, OK: err == nil, Latency: time.Since(start)}
		if err != nil {
			res.Error = err.Error()
			r.log.Warn("source unreachable", zap.String("tenant", name), zap.Error(err))
		}
		results = append(results, res)
	}
	return results
}
