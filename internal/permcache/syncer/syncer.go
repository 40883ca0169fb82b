// Package syncer copies reference tables from operational sources into the permission cache.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ispreport/internal/clock"
	"github.com/smallbiznis/ispreport/internal/observability/metrics"
	"github.com/smallbiznis/ispreport/internal/observability/tracing"
	"github.com/smallbiznis/ispreport/internal/permcache/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// Sources exposes tenant connections. *source.Registry satisfies it.
type Sources interface {
	Names() []string
	DB(tenant string) (*gorm.DB, string, error)
}

type Params struct {
	fx.In

	Sources Sources
	Repo    domain.Repository
	Log     *zap.Logger
	Clock   clock.Clock
	Node    *snowflake.Node
	Metrics *metrics.CacheMetrics `optional:"true"`
}

type Syncer struct {
	sources Sources
	repo    domain.Repository
	log     *zap.Logger
	clock   clock.Clock
	node    *snowflake.Node
	metrics *metrics.CacheMetrics
	tracer  trace.Tracer
}

func New(p Params) *Syncer {
	return &Syncer{
		sources: p.Sources,
		repo:    p.Repo,
		log:     p.Log.Named("permcache.syncer"),
		clock:   p.Clock,
		node:    p.Node,
		metrics: p.Metrics,
		tracer:  tracing.Tracer("permcache"),
	}
}

// SyncTenant replaces the tenant's cache with a fresh read of its source and
// records the attempt. The cache keeps its previous content when the read fails.
func (s *Syncer) SyncTenant(ctx context.Context, tenant, trigger string) (*domain.SyncRun, error) {
	ctx, span := s.tracer.Start(ctx, "permcache.SyncTenant", trace.WithAttributes(
		attribute.String("tenant", tenant),
		attribute.String("trigger", trigger),
	))
	defer span.End()

	startedAt := s.clock.Now()
	snap, err := s.load(ctx, tenant)
	if err == nil {
		err = s.repo.ReplaceTenant(ctx, snap)
	}
	finishedAt := s.clock.Now()

	run := &domain.SyncRun{
		ID:         s.node.Generate(),
		SourceName: tenant,
		Status:     domain.SyncStatusSucceeded,
		Trigger:    trigger,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		DurationMS: finishedAt.Sub(startedAt).Milliseconds(),
	}
	if err != nil {
		run.Status = domain.SyncStatusFailed
		run.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "sync failed")
	} else {
		counts := snap.Counts()
		run.Counts = make(datatypes.JSONMap, len(counts))
		for table, n := range counts {
			run.Counts[table] = n
			s.metrics.AddSyncRows(tenant, table, n)
		}
	}
	s.metrics.ObserveSync(tenant, finishedAt.Sub(startedAt), err, finishedAt)

	if recErr := s.repo.CreateSyncRun(context.WithoutCancel(ctx), run); recErr != nil {
		s.log.Warn("failed to record sync run", zap.String("tenant", tenant), zap.Error(recErr))
	}
	if err != nil {
		return run, fmt.Errorf("sync %s: %w", tenant, err)
	}
	return run, nil
}

// SyncAll refreshes every configured tenant in order. A failing tenant does
// not stop the others; failures are joined into the returned error.
func (s *Syncer) SyncAll(ctx context.Context, trigger string) ([]*domain.SyncRun, error) {
	tenants := s.sources.Names()
	if len(tenants) == 0 {
		return nil, errors.New("no sources configured")
	}

	start := s.clock.Now()
	total := len(tenants)
	runs := make([]*domain.SyncRun, 0, total)
	var errs []error
	completed := 0

	s.log.Info("starting permission cache sync", zap.Int("tenants", total), zap.String("trigger", trigger))
	for i, tenant := range tenants {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		tenantStart := s.clock.Now()
		run, err := s.SyncTenant(ctx, tenant, trigger)
		runs = append(runs, run)
		if err != nil {
			errs = append(errs, err)
			s.log.Error("tenant sync failed",
				zap.String("tenant", tenant),
				zap.Int("position", i+1),
				zap.Int("total", total),
				zap.Error(err),
			)
			continue
		}

		completed++
		now := s.clock.Now()
		avg := now.Sub(start) / time.Duration(completed)
		s.log.Info("tenant sync completed",
			zap.String("tenant", tenant),
			zap.Int("position", i+1),
			zap.Int("total", total),
			zap.Duration("elapsed", now.Sub(tenantStart)),
			zap.Duration("eta", avg*time.Duration(total-i-1)),
		)
	}
	s.log.Info("permission cache sync finished",
		zap.Int("succeeded", completed),
		zap.Int("failed", len(errs)),
		zap.Duration("elapsed", s.clock.Now().Sub(start)),
	)
	return runs, errors.Join(errs...)
}

func (s *Syncer) load(ctx context.Context, tenant string) (domain.Snapshot, error) {
	conn, name, err := s.sources.DB(tenant)
	if err != nil {
		return domain.Snapshot{}, err
	}
	db := conn.WithContext(ctx)
	snap := domain.Snapshot{Tenant: name}

	entities, err := scanEntities(db, selectResellers)
	if err != nil {
		return snap, fmt.Errorf("read Hreseller: %w", err)
	}
	for _, r := range entities {
		snap.Resellers = append(snap.Resellers, domain.Reseller{
			SourceName: name, SourceID: r.ID, Name: r.Name,
			NameNorm:  domain.NormalizeName(r.Name),
			IsEnabled: domain.ParseFlag(r.Enabled),
		})
	}

	if entities, err = scanEntities(db, selectVisps); err != nil {
		return snap, fmt.Errorf("read Hvisp: %w", err)
	}
	for _, r := range entities {
		snap.Visps = append(snap.Visps, domain.Visp{
			SourceName: name, SourceID: r.ID, Name: r.Name,
			IsEnabled: domain.ParseFlag(r.Enabled),
		})
	}

	if entities, err = scanEntities(db, selectCenters); err != nil {
		return snap, fmt.Errorf("read Hcenter: %w", err)
	}
	for _, r := range entities {
		snap.Centers = append(snap.Centers, domain.Center{
			SourceName: name, SourceID: r.ID, Name: r.Name,
			IsEnabled:  domain.ParseFlag(r.Enabled),
			VispAccess: domain.ParseAccessMode(r.VispAccess),
		})
	}

	if entities, err = scanEntities(db, selectSupporters); err != nil {
		return snap, fmt.Errorf("read Hsupporter: %w", err)
	}
	for _, r := range entities {
		snap.Supporters = append(snap.Supporters, domain.Supporter{
			SourceName: name, SourceID: r.ID, Name: r.Name,
			IsEnabled: domain.ParseFlag(r.Enabled),
		})
	}

	if entities, err = scanEntities(db, selectStatuses); err != nil {
		return snap, fmt.Errorf("read Hstatus: %w", err)
	}
	for _, r := range entities {
		snap.Statuses = append(snap.Statuses, domain.Status{
			SourceName: name, SourceID: r.ID, Name: r.Name,
			IsEnabled:      domain.ParseFlag(r.Enabled),
			ResellerAccess: domain.ParseAccessMode(r.ResellerAccess),
			VispAccess:     domain.ParseAccessMode(r.VispAccess),
		})
	}

	if entities, err = scanEntities(db, selectServices); err != nil {
		return snap, fmt.Errorf("read Hservice: %w", err)
	}
	for _, r := range entities {
		snap.Services = append(snap.Services, domain.Service{
			SourceName: name, SourceID: r.ID, Name: r.Name,
			IsEnabled:      domain.ParseFlag(r.Enabled),
			IsDeleted:      domain.ParseFlag(r.Deleted),
			ResellerAccess: domain.ParseAccessMode(r.ResellerAccess),
			VispAccess:     domain.ParseAccessMode(r.VispAccess),
		})
	}

	links, err := scanLinks(db, selectServiceResellers)
	if err != nil {
		return snap, fmt.Errorf("read Hservice_reselleraccess: %w", err)
	}
	for _, l := range links {
		snap.ServiceResellerAccess = append(snap.ServiceResellerAccess, domain.ServiceResellerAccess{
			SourceName: name, ServiceID: l.EntityID, ResellerID: l.OwnerID, Checked: domain.ParseFlag(l.Checked),
		})
	}
	if links, err = scanLinks(db, selectStatusResellers); err != nil {
		return snap, fmt.Errorf("read Hstatus_reselleraccess: %w", err)
	}
	for _, l := range links {
		snap.StatusResellerAccess = append(snap.StatusResellerAccess, domain.StatusResellerAccess{
			SourceName: name, StatusID: l.EntityID, ResellerID: l.OwnerID, Checked: domain.ParseFlag(l.Checked),
		})
	}
	if links, err = scanLinks(db, selectServiceVisps); err != nil {
		return snap, fmt.Errorf("read Hservice_vispaccess: %w", err)
	}
	for _, l := range links {
		snap.ServiceVispAccess = append(snap.ServiceVispAccess, domain.ServiceVispAccess{
			SourceName: name, ServiceID: l.EntityID, VispID: l.OwnerID, Checked: domain.ParseFlag(l.Checked),
		})
	}
	if links, err = scanLinks(db, selectStatusVisps); err != nil {
		return snap, fmt.Errorf("read Hstatus_vispaccess: %w", err)
	}
	for _, l := range links {
		snap.StatusVispAccess = append(snap.StatusVispAccess, domain.StatusVispAccess{
			SourceName: name, StatusID: l.EntityID, VispID: l.OwnerID, Checked: domain.ParseFlag(l.Checked),
		})
	}
	if links, err = scanLinks(db, selectCenterVisps); err != nil {
		return snap, fmt.Errorf("read Hcenter_vispaccess: %w", err)
	}
	for _, l := range links {
		snap.CenterVispAccess = append(snap.CenterVispAccess, domain.CenterVispAccess{
			SourceName: name, CenterID: l.EntityID, VispID: l.OwnerID, Checked: domain.ParseFlag(l.Checked),
		})
	}

	var permits []permitRow
	if err := db.Raw(selectPermits).Scan(&permits).Error; err != nil {
		return snap, fmt.Errorf("read Hreseller_permit: %w", err)
	}
	for _, p := range permits {
		snap.Permits = append(snap.Permits, domain.ResellerPermit{
			SourceName: name, ResellerID: p.ResellerID, VispID: p.VispID,
			PermitItemID: p.PermitItemID,
			IsPermit:     domain.ParseFlag(p.IsPermit),
		})
	}

	return Collapse(snap), nil
}

func scanEntities(db *gorm.DB, sql string) ([]entityRow, error) {
	var rows []entityRow
	err := db.Raw(sql).Scan(&rows).Error
	return rows, err
}

func scanLinks(db *gorm.DB, sql string) ([]linkRow, error) {
	var rows []linkRow
	err := db.Raw(sql).Scan(&rows).Error
	return rows, err
}
