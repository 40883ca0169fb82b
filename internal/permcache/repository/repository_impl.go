package repository

import (
	"context"
	"fmt"

	"github.com/smallbiznis/ispreport/internal/permcache/domain"
	"github.com/smallbiznis/ispreport/pkg/db/option"
	"github.com/smallbiznis/ispreport/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB

	resellers  repository.Repository[domain.Reseller]
	visps      repository.Repository[domain.Visp]
	centers    repository.Repository[domain.Center]
	supporters repository.Repository[domain.Supporter]
	statuses   repository.Repository[domain.Status]
	services   repository.Repository[domain.Service]

	serviceReseller repository.Repository[domain.ServiceResellerAccess]
	statusReseller  repository.Repository[domain.StatusResellerAccess]
	serviceVisp     repository.Repository[domain.ServiceVispAccess]
	statusVisp      repository.Repository[domain.StatusVispAccess]
	centerVisp      repository.Repository[domain.CenterVispAccess]

	permits  repository.Repository[domain.ResellerPermit]
	syncRuns repository.Repository[domain.SyncRun]
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{
		db:              db,
		resellers:       repository.ProvideStore[domain.Reseller](db),
		visps:           repository.ProvideStore[domain.Visp](db),
		centers:         repository.ProvideStore[domain.Center](db),
		supporters:      repository.ProvideStore[domain.Supporter](db),
		statuses:        repository.ProvideStore[domain.Status](db),
		services:        repository.ProvideStore[domain.Service](db),
		serviceReseller: repository.ProvideStore[domain.ServiceResellerAccess](db),
		statusReseller:  repository.ProvideStore[domain.StatusResellerAccess](db),
		serviceVisp:     repository.ProvideStore[domain.ServiceVispAccess](db),
		statusVisp:      repository.ProvideStore[domain.StatusVispAccess](db),
		centerVisp:      repository.ProvideStore[domain.CenterVispAccess](db),
		permits:         repository.ProvideStore[domain.ResellerPermit](db),
		syncRuns:        repository.ProvideStore[domain.SyncRun](db),
	}
}

// Migrate creates or updates every cache table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(domain.Models()...)
}

// HasTenant reports whether the tenant has been populated at least once.
// A tenant is considered present when any reseller or visp row exists.
func (r *repo) HasTenant(ctx context.Context, tenant string) (bool, error) {
	n, err := r.resellers.Count(ctx, tenant)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	n, err = r.visps.Count(ctx, tenant)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repo) Tenants(ctx context.Context) ([]string, error) {
	var tenants []string
	err := r.db.WithContext(ctx).
		Model(&domain.Reseller{}).
		Distinct().
		Order(repository.TenantColumn).
		Pluck(repository.TenantColumn, &tenants).Error
	return tenants, err
}

// FindReseller looks up an enabled reseller by normalized username.
// It returns nil, nil when no such reseller exists.
func (r *repo) FindReseller(ctx context.Context, tenant string, username string) (*domain.Reseller, error) {
	return r.resellers.FindOne(ctx, tenant,
		option.Where("name_norm = ? AND is_enabled = ?", domain.NormalizeName(username), true),
		option.OrderBy("source_id asc"),
	)
}

// ListPermits returns the authoritative (is_permit) rows of a reseller.
func (r *repo) ListPermits(ctx context.Context, tenant string, resellerID int64) ([]domain.ResellerPermit, error) {
	return r.permits.Find(ctx, tenant,
		option.Where("reseller_id = ? AND is_permit = ?", resellerID, true),
		option.OrderBy("visp_id asc"),
	)
}

func (r *repo) ListVisps(ctx context.Context, tenant string) ([]domain.Visp, error) {
	return r.visps.Find(ctx, tenant,
		option.Where("is_enabled = ?", true),
		option.OrderBy("name asc, source_id asc"),
	)
}

func (r *repo) ListServices(ctx context.Context, tenant string) ([]domain.Service, error) {
	return r.services.Find(ctx, tenant,
		option.Where("is_enabled = ? AND is_deleted = ?", true, false),
		option.OrderBy("name asc, source_id asc"),
	)
}

func (r *repo) ListStatuses(ctx context.Context, tenant string) ([]domain.Status, error) {
	return r.statuses.Find(ctx, tenant,
		option.Where("is_enabled = ?", true),
		option.OrderBy("name asc, source_id asc"),
	)
}

func (r *repo) ListCenters(ctx context.Context, tenant string) ([]domain.Center, error) {
	return r.centers.Find(ctx, tenant,
		option.Where("is_enabled = ?", true),
		option.OrderBy("name asc, source_id asc"),
	)
}

func (r *repo) ListSupporters(ctx context.Context, tenant string) ([]domain.Supporter, error) {
	return r.supporters.Find(ctx, tenant,
		option.Where("is_enabled = ?", true),
		option.OrderBy("name asc, source_id asc"),
	)
}

// CheckedByReseller returns ids of kind entities checked for the reseller.
func (r *repo) CheckedByReseller(ctx context.Context, tenant string, kind domain.Kind, resellerID int64) (map[int64]struct{}, error) {
	where := option.Where("reseller_id = ? AND checked = ?", resellerID, true)

	var (
		ids []int64
		err error
	)
	switch kind {
	case domain.KindService:
		ids, err = r.serviceReseller.Pluck(ctx, tenant, "service_id", where)
	case domain.KindStatus:
		ids, err = r.statusReseller.Pluck(ctx, tenant, "status_id", where)
	case domain.KindCenter:
		return map[int64]struct{}{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidKind, kind)
	}
	if err != nil {
		return nil, err
	}
	return toSet(ids), nil
}

// CheckedByVisps returns ids of kind entities checked for any of the visps.
func (r *repo) CheckedByVisps(ctx context.Context, tenant string, kind domain.Kind, vispIDs []int64) (map[int64]struct{}, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidKind, kind)
	}
	if len(vispIDs) == 0 {
		return map[int64]struct{}{}, nil
	}
	where := option.Where("visp_id IN ? AND checked = ?", vispIDs, true)

	var (
		ids []int64
		err error
	)
	switch kind {
	case domain.KindService:
		ids, err = r.serviceVisp.Pluck(ctx, tenant, "service_id", where)
	case domain.KindStatus:
		ids, err = r.statusVisp.Pluck(ctx, tenant, "status_id", where)
	case domain.KindCenter:
		ids, err = r.centerVisp.Pluck(ctx, tenant, "center_id", where)
	}
	if err != nil {
		return nil, err
	}
	return toSet(ids), nil
}

// ReplaceTenant swaps the tenant's complete cache content in one transaction.
// Readers never observe a partially written tenant.
func (r *repo) ReplaceTenant(ctx context.Context, snap domain.Snapshot) error {
	if snap.Tenant == "" {
		return domain.ErrInvalidTenant
	}
	tenant := snap.Tenant
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps := []func() error{
			func() error { return r.resellers.WithTrx(tx).ReplaceTenant(ctx, tenant, snap.Resellers) },
			func() error { return r.visps.WithTrx(tx).ReplaceTenant(ctx, tenant, snap.Visps) },
			func() error { return r.centers.WithTrx(tx).ReplaceTenant(ctx, tenant, snap.Centers) },
			func() error { return r.supporters.WithTrx(tx).ReplaceTenant(ctx, tenant, snap.Supporters) },
			func() error { return r.statuses.WithTrx(tx).ReplaceTenant(ctx, tenant, snap.Statuses) },
			func() error { return r.services.WithTrx(tx).ReplaceTenant(ctx, tenant, snap.Services) },
			func() error {
				return r.serviceReseller.WithTrx(tx).ReplaceTenant(ctx, tenant, snap.ServiceResellerAccess)
			},
			func() error {
				return r.statusReseller.WithTrx(tx).ReplaceTenant(ctx, tenant, snap.StatusResellerAccess)
			},
			func() error { return r.serviceVisp.WithTrx(tx).ReplaceTenant(ctx, tenant, snap.ServiceVispAccess) },
			func() error { return r.statusVisp.WithTrx(tx).ReplaceTenant(ctx, tenant, snap.StatusVispAccess) },
			func() error { return r.centerVisp.WithTrx(tx).ReplaceTenant(ctx, tenant, snap.CenterVispAccess) },
			func() error { return r.permits.WithTrx(tx).ReplaceTenant(ctx, tenant, snap.Permits) },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repo) CreateSyncRun(ctx context.Context, run *domain.SyncRun) error {
	return r.syncRuns.Create(ctx, run)
}

func (r *repo) ListSyncRuns(ctx context.Context, tenant string, limit int) ([]domain.SyncRun, error) {
	return r.syncRuns.Find(ctx, tenant,
		option.OrderBy("started_at desc, id desc"),
		option.Limit(limit),
	)
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
