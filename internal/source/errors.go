package source

import (
	"errors"
	"fmt"

	"github.com/smallbiznis/ispreport/internal/observability/metrics"
)

var (
	ErrInvalidTableName = errors.New("invalid_table_name")
	ErrNoSources        = errors.New("no_sources_configured")
)

// ConfigurationError means the tenant has no operational source configured.
type ConfigurationError struct {
	Tenant string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("source: no connection configured for tenant %q", e.Tenant)
}

func (e *ConfigurationError) MetricReason() string { return metrics.ReasonConfiguration }

// ConnectivityError means every candidate table failed. Err is the last failure.
type ConnectivityError struct {
	Tenant string
	Table  string
	Err    error
}

func (e *ConnectivityError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("source: query failed for tenant %q: %v", e.Tenant, e.Err)
	}
	return fmt.Sprintf("source: all candidate tables failed for tenant %q (last %s): %v", e.Tenant, e.Table, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

func (e *ConnectivityError) MetricReason() string { return metrics.ReasonConnectivity }
