package syncer_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ispreport/internal/clock"
	"github.com/smallbiznis/ispreport/internal/observability/metrics"
	"github.com/smallbiznis/ispreport/internal/permcache/domain"
	"github.com/smallbiznis/ispreport/internal/permcache/permcachetest"
	"github.com/smallbiznis/ispreport/internal/permcache/repository"
	"github.com/smallbiznis/ispreport/internal/permcache/syncer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func seedSource(t *testing.T, db *gorm.DB) {
	permcachetest.Exec(t, db,
		`INSERT INTO Hreseller VALUES (10, ' Acme ', 'Yes'), (11, 'Old', 'No')`,
		`INSERT INTO Hvisp VALUES (1, 'North', 'Yes'), (2, 'South', '1'), (3, 'Closed', 'No')`,
		`INSERT INTO Hcenter VALUES (7, 'Main', 'Yes', 'Restricted')`,
		`INSERT INTO Hsupporter VALUES (5, 'default-supporter', 'Yes')`,
		`INSERT INTO Hstatus VALUES (20, 'active', 'Yes', 'All', NULL)`,
		`INSERT INTO Hservice VALUES (100, '50GB-Monthly', 'Yes', 'No', 'All', 'Restricted'), (100, '50GB-Monthly v2', 'Yes', 'No', 'All', 'Restricted')`,
		`INSERT INTO Hservice_vispaccess VALUES (100, 2, 'Yes')`,
		`INSERT INTO Hcenter_vispaccess VALUES (7, 1, 'true')`,
		`INSERT INTO Hreseller_permit VALUES (10, 0, NULL, 'Yes'), (10, 2, 4, 'No')`,
	)
}

func newSyncer(t *testing.T, sources syncer.Sources) (*syncer.Syncer, domain.Repository, *prometheus.Registry) {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	repo := repository.Provide(permcachetest.NewCacheDB(t))
	reg := prometheus.NewRegistry()
	m := metrics.NewCacheMetricsForTest(reg)
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	s := syncer.New(syncer.Params{
		Sources: sources,
		Repo:    repo,
		Log:     zap.NewNop(),
		Clock:   fake,
		Node:    node,
		Metrics: m,
	})
	return s, repo, reg
}

func TestSyncTenantMapsSourceRows(t *testing.T) {
	ctx := context.Background()
	src := permcachetest.NewSourceDB(t, "alpha")
	seedSource(t, src)

	s, repo, reg := newSyncer(t, permcachetest.NewSources().Add("alpha", src))

	run, err := s.SyncTenant(ctx, "alpha", syncer.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusSucceeded, run.Status)
	assert.EqualValues(t, 2, run.Counts["permcache_resellers"])
	assert.EqualValues(t, 1, run.Counts["permcache_services"])

	reseller, err := repo.FindReseller(ctx, "alpha", "acme")
	require.NoError(t, err)
	require.NotNil(t, reseller)
	assert.Equal(t, " Acme ", reseller.Name)

	visps, err := repo.ListVisps(ctx, "alpha")
	require.NoError(t, err)
	assert.Len(t, visps, 2)

	services, err := repo.ListServices(ctx, "alpha")
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "50GB-Monthly v2", services[0].Name)
	assert.Equal(t, domain.AccessUnrestricted, services[0].ResellerAccess)
	assert.Equal(t, domain.AccessRestricted, services[0].VispAccess)

	statuses, err := repo.ListStatuses(ctx, "alpha")
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, domain.AccessUnrestricted, statuses[0].VispAccess)

	centers, err := repo.CheckedByVisps(ctx, "alpha", domain.KindCenter, []int64{1})
	require.NoError(t, err)
	assert.Contains(t, centers, int64(7))

	permits, err := repo.ListPermits(ctx, "alpha", 10)
	require.NoError(t, err)
	require.Len(t, permits, 1)
	assert.Equal(t, domain.AllVisps, permits[0].VispID)
	assert.Nil(t, permits[0].PermitItemID)

	runs, err := repo.ListSyncRuns(ctx, "alpha", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, syncer.TriggerManual, runs[0].Trigger)

	n, err := testutil.GatherAndCount(reg, "ispreport_cache_sync_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSyncTenantFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	src := permcachetest.NewSourceDB(t, "alpha")
	seedSource(t, src)
	sources := permcachetest.NewSources().Add("alpha", src)

	s, repo, _ := newSyncer(t, sources)
	_, err := s.SyncTenant(ctx, "alpha", syncer.TriggerManual)
	require.NoError(t, err)

	permcachetest.Exec(t, src, `DROP TABLE Hreseller_permit`)

	run, err := s.SyncTenant(ctx, "alpha", syncer.TriggerScheduled)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Hreseller_permit")
	assert.Equal(t, domain.SyncStatusFailed, run.Status)
	assert.NotEmpty(t, run.Error)

	permits, err := repo.ListPermits(ctx, "alpha", 10)
	require.NoError(t, err)
	assert.Len(t, permits, 1)
}

func TestSyncAllContinuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	good := permcachetest.NewSourceDB(t, "good")
	seedSource(t, good)
	sources := permcachetest.NewSources().
		Add("broken", permcachetest.OpenMemory(t, "broken")).
		Add("good", good)

	s, repo, _ := newSyncer(t, sources)

	runs, err := s.SyncAll(ctx, syncer.TriggerScheduled)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync broken")
	require.Len(t, runs, 2)
	assert.Equal(t, domain.SyncStatusFailed, runs[0].Status)
	assert.Equal(t, domain.SyncStatusSucceeded, runs[1].Status)

	ok, err := repo.HasTenant(ctx, "good")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCollapseLastWins(t *testing.T) {
	item := int64(4)
	snap := syncer.Collapse(domain.Snapshot{
		Visps: []domain.Visp{
			{SourceID: 1, Name: "first"},
			{SourceID: 2, Name: "other"},
			{SourceID: 1, Name: "last"},
		},
		Permits: []domain.ResellerPermit{
			{ResellerID: 1, VispID: 2, IsPermit: false},
			{ResellerID: 1, VispID: 2, PermitItemID: &item, IsPermit: true},
			{ResellerID: 1, VispID: 2, IsPermit: true},
		},
	})

	require.Len(t, snap.Visps, 2)
	assert.Equal(t, "last", snap.Visps[0].Name)
	assert.Equal(t, "other", snap.Visps[1].Name)

	require.Len(t, snap.Permits, 2)
	assert.True(t, snap.Permits[0].IsPermit)
	assert.Nil(t, snap.Permits[0].PermitItemID)
}
