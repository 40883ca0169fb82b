// Package tenantctx carries the operational source name (tenant) through a request.
package tenantctx

import (
	"context"
	"strings"
)

type keyType string

const TenantKey keyType = "tenant"

func WithTenant(ctx context.Context, tenant string) context.Context {
	return context.WithValue(ctx, TenantKey, strings.TrimSpace(tenant))
}

func Tenant(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	tenant, ok := ctx.Value(TenantKey).(string)
	return tenant, ok && tenant != ""
}
