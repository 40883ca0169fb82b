package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/ispreport/internal/permcache/domain"
	"github.com/smallbiznis/ispreport/internal/permcache/permcachetest"
	"github.com/smallbiznis/ispreport/internal/permcache/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func baseSnapshot(tenant string) domain.Snapshot {
	return domain.Snapshot{
		Tenant: tenant,
		Resellers: []domain.Reseller{
			{SourceName: tenant, SourceID: 10, Name: " Acme ", NameNorm: "acme", IsEnabled: true},
			{SourceName: tenant, SourceID: 11, Name: "Retired", NameNorm: "retired", IsEnabled: false},
		},
		Visps: []domain.Visp{
			{SourceName: tenant, SourceID: 2, Name: "Beta", IsEnabled: true},
			{SourceName: tenant, SourceID: 1, Name: "Alpha", IsEnabled: true},
			{SourceName: tenant, SourceID: 3, Name: "Gone", IsEnabled: false},
		},
		Services: []domain.Service{
			{SourceName: tenant, SourceID: 100, Name: "Zeta", IsEnabled: true, ResellerAccess: domain.AccessUnrestricted, VispAccess: domain.AccessUnrestricted},
			{SourceName: tenant, SourceID: 101, Name: "Deleted", IsEnabled: true, IsDeleted: true, ResellerAccess: domain.AccessUnrestricted, VispAccess: domain.AccessUnrestricted},
		},
		ServiceResellerAccess: []domain.ServiceResellerAccess{
			{SourceName: tenant, ServiceID: 100, ResellerID: 10, Checked: true},
			{SourceName: tenant, ServiceID: 101, ResellerID: 10, Checked: false},
		},
		ServiceVispAccess: []domain.ServiceVispAccess{
			{SourceName: tenant, ServiceID: 100, VispID: 1, Checked: true},
			{SourceName: tenant, ServiceID: 101, VispID: 2, Checked: true},
		},
		CenterVispAccess: []domain.CenterVispAccess{
			{SourceName: tenant, CenterID: 7, VispID: 2, Checked: true},
		},
		Permits: []domain.ResellerPermit{
			{SourceName: tenant, ResellerID: 10, VispID: 1, IsPermit: true},
			{SourceName: tenant, ResellerID: 10, VispID: 2, IsPermit: false},
		},
	}
}

func TestReplaceTenantAndReads(t *testing.T) {
	ctx := context.Background()
	repo := repository.Provide(permcachetest.NewCacheDB(t))

	require.NoError(t, repo.ReplaceTenant(ctx, baseSnapshot("alpha")))

	ok, err := repo.HasTenant(ctx, "alpha")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HasTenant(ctx, "beta")
	require.NoError(t, err)
	assert.False(t, ok)

	reseller, err := repo.FindReseller(ctx, "alpha", "  ACME ")
	require.NoError(t, err)
	require.NotNil(t, reseller)
	assert.Equal(t, int64(10), reseller.SourceID)

	disabled, err := repo.FindReseller(ctx, "alpha", "retired")
	require.NoError(t, err)
	assert.Nil(t, disabled)

	visps, err := repo.ListVisps(ctx, "alpha")
	require.NoError(t, err)
	require.Len(t, visps, 2)
	assert.Equal(t, "Alpha", visps[0].Name)
	assert.Equal(t, "Beta", visps[1].Name)

	services, err := repo.ListServices(ctx, "alpha")
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, int64(100), services[0].SourceID)

	permits, err := repo.ListPermits(ctx, "alpha", 10)
	require.NoError(t, err)
	require.Len(t, permits, 1)
	assert.Equal(t, int64(1), permits[0].VispID)
}

func TestCheckedSets(t *testing.T) {
	ctx := context.Background()
	repo := repository.Provide(permcachetest.NewCacheDB(t))
	require.NoError(t, repo.ReplaceTenant(ctx, baseSnapshot("alpha")))

	set, err := repo.CheckedByReseller(ctx, "alpha", domain.KindService, 10)
	require.NoError(t, err)
	assert.Equal(t, map[int64]struct{}{100: {}}, set)

	set, err = repo.CheckedByReseller(ctx, "alpha", domain.KindCenter, 10)
	require.NoError(t, err)
	assert.Empty(t, set)

	set, err = repo.CheckedByVisps(ctx, "alpha", domain.KindService, []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, map[int64]struct{}{100: {}, 101: {}}, set)

	set, err = repo.CheckedByVisps(ctx, "alpha", domain.KindCenter, []int64{2})
	require.NoError(t, err)
	assert.Equal(t, map[int64]struct{}{7: {}}, set)

	set, err = repo.CheckedByVisps(ctx, "alpha", domain.KindService, nil)
	require.NoError(t, err)
	assert.Empty(t, set)

	_, err = repo.CheckedByVisps(ctx, "alpha", domain.Kind("package"), []int64{1})
	assert.ErrorIs(t, err, domain.ErrInvalidKind)
}

func TestReplaceTenantIsolatesTenants(t *testing.T) {
	ctx := context.Background()
	repo := repository.Provide(permcachetest.NewCacheDB(t))

	require.NoError(t, repo.ReplaceTenant(ctx, baseSnapshot("alpha")))
	require.NoError(t, repo.ReplaceTenant(ctx, baseSnapshot("beta")))

	next := domain.Snapshot{
		Tenant: "alpha",
		Visps:  []domain.Visp{{SourceName: "alpha", SourceID: 9, Name: "Only", IsEnabled: true}},
	}
	require.NoError(t, repo.ReplaceTenant(ctx, next))

	alpha, err := repo.ListVisps(ctx, "alpha")
	require.NoError(t, err)
	require.Len(t, alpha, 1)
	assert.Equal(t, int64(9), alpha[0].SourceID)

	permits, err := repo.ListPermits(ctx, "alpha", 10)
	require.NoError(t, err)
	assert.Empty(t, permits)

	beta, err := repo.ListVisps(ctx, "beta")
	require.NoError(t, err)
	assert.Len(t, beta, 2)

	tenants, err := repo.Tenants(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"beta"}, tenants)
}

func TestReplaceTenantRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	repo := repository.Provide(permcachetest.NewCacheDB(t))
	require.NoError(t, repo.ReplaceTenant(ctx, baseSnapshot("alpha")))

	broken := baseSnapshot("alpha")
	broken.Visps = append(broken.Visps, broken.Visps[0])

	require.Error(t, repo.ReplaceTenant(ctx, broken))

	visps, err := repo.ListVisps(ctx, "alpha")
	require.NoError(t, err)
	assert.Len(t, visps, 2)
	reseller, err := repo.FindReseller(ctx, "alpha", "acme")
	require.NoError(t, err)
	assert.NotNil(t, reseller)
}

func TestReplaceTenantRequiresTenant(t *testing.T) {
	repo := repository.Provide(permcachetest.NewCacheDB(t))
	assert.ErrorIs(t, repo.ReplaceTenant(context.Background(), domain.Snapshot{}), domain.ErrInvalidTenant)
}

func TestSyncRuns(t *testing.T) {
	ctx := context.Background()
	repo := repository.Provide(permcachetest.NewCacheDB(t))

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		require.NoError(t, repo.CreateSyncRun(ctx, &domain.SyncRun{
			ID:         snowflakeID(i),
			SourceName: "alpha",
			Status:     domain.SyncStatusSucceeded,
			Trigger:    "manual",
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i) * time.Minute),
			Counts:     datatypes.JSONMap{"permcache_visps": i},
		}))
	}

	runs, err := repo.ListSyncRuns(ctx, "alpha", 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, snowflakeID(3), runs[0].ID)
	assert.Equal(t, snowflakeID(2), runs[1].ID)
}
