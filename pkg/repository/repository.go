// Package repository provides a generic gorm store for tables partitioned by tenant.
package repository

import (
	"context"

	"github.com/smallbiznis/ispreport/pkg/db/option"
	"gorm.io/gorm"
)

// TenantColumn is the partition column shared by every cached table.
const TenantColumn = "source_name"

type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, tenant string, opts ...option.QueryOption) ([]T, error)
	FindOne(ctx context.Context, tenant string, opts ...option.QueryOption) (*T, error)
	Pluck(ctx context.Context, tenant string, column string, opts ...option.QueryOption) ([]int64, error)
	Count(ctx context.Context, tenant string) (int64, error)
	Create(ctx context.Context, resource *T) error
	ReplaceTenant(ctx context.Context, tenant string, rows []T) error
}
