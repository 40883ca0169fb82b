package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/smallbiznis/ispreport/internal/config"
	cachedomain "github.com/smallbiznis/ispreport/internal/permcache/domain"
	"github.com/smallbiznis/ispreport/internal/permcache/permcachetest"
	"github.com/smallbiznis/ispreport/internal/permcache/repository"
	"github.com/smallbiznis/ispreport/internal/permission/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const tenant = "alpha"

var (
	unrestricted = cachedomain.AccessUnrestricted
	restricted   = cachedomain.AccessRestricted
)

// acmeSnapshot: reseller Acme (10), visps 1..3 enabled plus disabled 4.
func acmeSnapshot(permits ...cachedomain.ResellerPermit) cachedomain.Snapshot {
	for i := range permits {
		permits[i].SourceName = tenant
		permits[i].ResellerID = 10
		permits[i].IsPermit = true
	}
	return cachedomain.Snapshot{
		Tenant: tenant,
		Resellers: []cachedomain.Reseller{
			{SourceName: tenant, SourceID: 10, Name: "Acme", NameNorm: "acme", IsEnabled: true},
		},
		Visps: []cachedomain.Visp{
			{SourceName: tenant, SourceID: 1, Name: "One", IsEnabled: true},
			{SourceName: tenant, SourceID: 2, Name: "Two", IsEnabled: true},
			{SourceName: tenant, SourceID: 3, Name: "Three", IsEnabled: true},
			{SourceName: tenant, SourceID: 4, Name: "Four", IsEnabled: false},
		},
		Services: []cachedomain.Service{
			{SourceName: tenant, SourceID: 100, Name: "Open", IsEnabled: true, ResellerAccess: unrestricted, VispAccess: unrestricted},
			{SourceName: tenant, SourceID: 101, Name: "Visp one only", IsEnabled: true, ResellerAccess: unrestricted, VispAccess: restricted},
			{SourceName: tenant, SourceID: 102, Name: "Acme only", IsEnabled: true, ResellerAccess: restricted, VispAccess: unrestricted},
			{SourceName: tenant, SourceID: 103, Name: "Other reseller", IsEnabled: true, ResellerAccess: restricted, VispAccess: unrestricted},
			{SourceName: tenant, SourceID: 104, Name: "Deleted", IsEnabled: true, IsDeleted: true, ResellerAccess: unrestricted, VispAccess: unrestricted},
			{SourceName: tenant, SourceID: 105, Name: "Disabled", IsEnabled: false, ResellerAccess: unrestricted, VispAccess: unrestricted},
			{SourceName: tenant, SourceID: 32, Name: "Hidden", IsEnabled: true, ResellerAccess: unrestricted, VispAccess: unrestricted},
			{SourceName: tenant, SourceID: 106, Name: "Open", IsEnabled: true, ResellerAccess: unrestricted, VispAccess: unrestricted},
		},
		Statuses: []cachedomain.Status{
			{SourceName: tenant, SourceID: 20, Name: "suspended", IsEnabled: true, ResellerAccess: unrestricted, VispAccess: unrestricted},
			{SourceName: tenant, SourceID: 21, Name: "active", IsEnabled: true, ResellerAccess: unrestricted, VispAccess: unrestricted},
			{SourceName: tenant, SourceID: 22, Name: "unchecked", IsEnabled: true, ResellerAccess: restricted, VispAccess: unrestricted},
		},
		Centers: []cachedomain.Center{
			{SourceName: tenant, SourceID: 7, Name: "Main", IsEnabled: true, VispAccess: restricted},
			{SourceName: tenant, SourceID: 8, Name: "Branch", IsEnabled: true, VispAccess: restricted},
			{SourceName: tenant, SourceID: 9, Name: "Everywhere", IsEnabled: true, VispAccess: unrestricted},
		},
		Supporters: []cachedomain.Supporter{
			{SourceName: tenant, SourceID: 5, Name: "alice", IsEnabled: true},
			{SourceName: tenant, SourceID: 6, Name: "default-supporter", IsEnabled: true},
		},
		ServiceResellerAccess: []cachedomain.ServiceResellerAccess{
			{SourceName: tenant, ServiceID: 102, ResellerID: 10, Checked: true},
			{SourceName: tenant, ServiceID: 103, ResellerID: 11, Checked: true},
		},
		StatusResellerAccess: []cachedomain.StatusResellerAccess{
			{SourceName: tenant, StatusID: 22, ResellerID: 10, Checked: false},
		},
		ServiceVispAccess: []cachedomain.ServiceVispAccess{
			{SourceName: tenant, ServiceID: 101, VispID: 1, Checked: true},
		},
		CenterVispAccess: []cachedomain.CenterVispAccess{
			{SourceName: tenant, CenterID: 7, VispID: 2, Checked: true},
			{SourceName: tenant, CenterID: 8, VispID: 3, Checked: false},
		},
		Permits: permits,
	}
}

func newService(t *testing.T, snap cachedomain.Snapshot) domain.Service {
	t.Helper()

	repo := repository.Provide(permcachetest.NewCacheDB(t))
	require.NoError(t, repo.ReplaceTenant(context.Background(), snap))
	return New(Params{
		Log:    zap.NewNop(),
		Repo:   repo,
		Policy: config.NewStaticPolicyHolder(config.DefaultPolicy()),
	})
}

func TestResolveVispsSentinelMeansAllEnabled(t *testing.T) {
	svc := newService(t, acmeSnapshot(cachedomain.ResellerPermit{VispID: 0}))

	d, err := svc.ResolveVisps(context.Background(), tenant, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionUnrestricted, d.Kind())
	assert.Equal(t, []int64{1, 2, 3}, d.IDs())
}

func TestResolveVispsSentinelOverridesExplicitIDs(t *testing.T) {
	svc := newService(t, acmeSnapshot(
		cachedomain.ResellerPermit{VispID: 2},
		cachedomain.ResellerPermit{VispID: 0},
	))

	d, err := svc.ResolveVisps(context.Background(), tenant, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, d.IDs())
}

func TestResolveVispsExplicitIDs(t *testing.T) {
	svc := newService(t, acmeSnapshot(
		cachedomain.ResellerPermit{VispID: 2},
		cachedomain.ResellerPermit{VispID: -1},
		cachedomain.ResellerPermit{VispID: 9},
	))

	d, err := svc.ResolveVisps(context.Background(), tenant, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionAllowed, d.Kind())
	assert.Equal(t, []int64{2, 9}, d.IDs())
}

func TestResolveVispsWithoutPermitsIsDenied(t *testing.T) {
	snap := acmeSnapshot()
	snap.Permits = []cachedomain.ResellerPermit{{SourceName: tenant, ResellerID: 10, VispID: 0, IsPermit: false}}
	svc := newService(t, snap)

	d, err := svc.ResolveVisps(context.Background(), tenant, 10)
	require.NoError(t, err)
	assert.True(t, d.IsDenied())
	assert.Empty(t, d.IDs())

	_, err = svc.ResolveVisps(context.Background(), " ", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidTenant)
}

func TestResolveEntitiesEmptyVispsIsEmpty(t *testing.T) {
	svc := newService(t, acmeSnapshot(cachedomain.ResellerPermit{VispID: 0}))

	for _, kind := range []domain.Kind{domain.KindService, domain.KindStatus, domain.KindCenter} {
		got, err := svc.ResolveEntities(context.Background(), kind, tenant, 10, nil)
		require.NoError(t, err)
		assert.Empty(t, got, string(kind))
	}
}

func TestResolveServices(t *testing.T) {
	svc := newService(t, acmeSnapshot(cachedomain.ResellerPermit{VispID: 2}))

	got, err := svc.ResolveEntities(context.Background(), domain.KindService, tenant, 10, []int64{2})
	require.NoError(t, err)
	assert.Equal(t, []domain.Entity{
		{ID: 102, Name: "Acme only"},
		{ID: 32, Name: "Hidden"},
		{ID: 100, Name: "Open"},
		{ID: 106, Name: "Open"},
	}, got)

	got, err = svc.ResolveEntities(context.Background(), domain.KindService, tenant, 10, []int64{1, 2})
	require.NoError(t, err)
	assert.Contains(t, got, domain.Entity{ID: 101, Name: "Visp one only"})
}

func TestResolveStatusesAndCenters(t *testing.T) {
	svc := newService(t, acmeSnapshot(cachedomain.ResellerPermit{VispID: 0}))
	ctx := context.Background()

	statuses, err := svc.ResolveEntities(ctx, domain.KindStatus, tenant, 10, []int64{1})
	require.NoError(t, err)
	assert.Equal(t, []domain.Entity{{ID: 21, Name: "active"}, {ID: 20, Name: "suspended"}}, statuses)

	centers, err := svc.ResolveEntities(ctx, domain.KindCenter, tenant, 10, []int64{2, 3})
	require.NoError(t, err)
	assert.Equal(t, []domain.Entity{{ID: 9, Name: "Everywhere"}, {ID: 7, Name: "Main"}}, centers)

	_, err = svc.ResolveEntities(ctx, domain.Kind("package"), tenant, 10, []int64{1})
	assert.ErrorIs(t, err, domain.ErrInvalidKind)
}

func TestResolveEntityDecision(t *testing.T) {
	svc := newService(t, acmeSnapshot(cachedomain.ResellerPermit{VispID: 0}))
	ctx := context.Background()

	d, err := svc.ResolveEntityDecision(ctx, domain.KindCenter, tenant, 10, []int64{1})
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionAllowed, d.Kind())
	assert.Equal(t, []int64{9}, d.IDs())

	d, err = svc.ResolveEntityDecision(ctx, domain.KindCenter, tenant, 10, nil)
	require.NoError(t, err)
	assert.True(t, d.IsDenied())
}

func TestProfile(t *testing.T) {
	svc := newService(t, acmeSnapshot(cachedomain.ResellerPermit{VispID: 1}, cachedomain.ResellerPermit{VispID: 4}))

	p, err := svc.Profile(context.Background(), tenant, "  ACME")
	require.NoError(t, err)
	assert.Equal(t, domain.Entity{ID: 10, Name: "Acme"}, p.Reseller)
	assert.Equal(t, []domain.Entity{{ID: 1, Name: "One"}}, p.Visps)
	assert.NotContains(t, p.Services, domain.Entity{ID: 32, Name: "Hidden"})
	assert.Contains(t, p.Services, domain.Entity{ID: 101, Name: "Visp one only"})
	require.NotNil(t, p.DefaultStatusID)
	assert.Equal(t, int64(21), *p.DefaultStatusID)
	require.NotNil(t, p.DefaultSupporterID)
	assert.Equal(t, int64(6), *p.DefaultSupporterID)
	assert.Equal(t, []domain.Entity{{ID: 9, Name: "Everywhere"}}, p.Centers)
}

func TestProfileErrors(t *testing.T) {
	svc := newService(t, acmeSnapshot(cachedomain.ResellerPermit{VispID: 0}))
	ctx := context.Background()

	_, err := svc.Profile(ctx, tenant, "nobody")
	assert.ErrorIs(t, err, domain.ErrResellerNotFound)

	_, err = svc.Profile(ctx, "beta", "acme")
	assert.ErrorIs(t, err, domain.ErrCacheEmpty)

	_, err = svc.Profile(ctx, tenant, "")
	assert.ErrorIs(t, err, domain.ErrInvalidUsername)
}

func TestPickDefaultFallsBackToFirst(t *testing.T) {
	entities := []domain.Entity{{ID: 3, Name: "x"}, {ID: 4, Name: "y"}}
	assert.Equal(t, int64(3), *pickDefault(entities, "active"))
	assert.Equal(t, int64(4), *pickDefault(entities, " Y "))
	assert.Nil(t, pickDefault(nil, "active"))
}

func TestDecisionJSON(t *testing.T) {
	b, err := json.Marshal(domain.Allowed([]int64{3, 1, 3}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"decision":"allowed","ids":[1,3]}`, string(b))

	b, err = json.Marshal(domain.Allowed(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"decision":"denied","ids":[]}`, string(b))
}
