package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/ispreport/pkg/db/option"
	"gorm.io/gorm"
)

const defaultBatchSize = 500

type store[T any] struct {
	db        *gorm.DB
	batchSize int
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db, batchSize: defaultBatchSize}
}

func (r *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	return &store[T]{db: tx, batchSize: r.batchSize}
}

func (r *store[T]) Find(ctx context.Context, tenant string, opts ...option.QueryOption) ([]T, error) {
	var result []T
	err := r.buildQuery(ctx, tenant, opts...).Find(&result).Error
	return result, err
}

func (r *store[T]) FindOne(ctx context.Context, tenant string, opts ...option.QueryOption) (*T, error) {
	var result T
	err := r.buildQuery(ctx, tenant, opts...).Take(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *store[T]) Pluck(ctx context.Context, tenant string, column string, opts ...option.QueryOption) ([]int64, error) {
	var ids []int64
	err := r.buildQuery(ctx, tenant, opts...).Distinct().Pluck(column, &ids).Error
	return ids, err
}

func (r *store[T]) Count(ctx context.Context, tenant string) (int64, error) {
	var count int64
	err := r.buildQuery(ctx, tenant).Count(&count).Error
	return count, err
}

func (r *store[T]) Create(ctx context.Context, resource *T) error {
	return r.db.WithContext(ctx).Create(resource).Error
}

// ReplaceTenant deletes every row of the tenant and inserts rows in batches.
// Callers wanting atomicity pass a transaction through WithTrx.
func (r *store[T]) ReplaceTenant(ctx context.Context, tenant string, rows []T) error {
	db := r.db.WithContext(ctx)
	if err := db.Where(TenantColumn+" = ?", tenant).Delete(new(T)).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return db.CreateInBatches(rows, r.batchSize).Error
}

func (r *store[T]) buildQuery(ctx context.Context, tenant string, opts ...option.QueryOption) *gorm.DB {
	db := r.db.WithContext(ctx).Model(new(T)).Where(TenantColumn+" = ?", tenant)
	for _, opt := range opts {
		db = opt.Apply(db)
	}
	return db
}
