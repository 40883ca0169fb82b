package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/smallbiznis/ispreport/internal/config"
	"github.com/smallbiznis/ispreport/internal/observability/logger"
	"github.com/smallbiznis/ispreport/internal/observability/metrics"
	"github.com/smallbiznis/ispreport/internal/observability/tracing"
	cachedomain "github.com/smallbiznis/ispreport/internal/permcache/domain"
	"github.com/smallbiznis/ispreport/internal/permission/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Repo    cachedomain.Repository
	Policy  *config.PolicyHolder  `optional:"true"`
	Metrics *metrics.CacheMetrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	repo    cachedomain.Repository
	policy  *config.PolicyHolder
	metrics *metrics.CacheMetrics
	tracer  trace.Tracer
}

func New(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("permission.service"),
		repo:    p.Repo,
		policy:  p.Policy,
		metrics: p.Metrics,
		tracer:  tracing.Tracer("permission"),
	}
}

// candidate is the access-relevant projection of a service, status or center.
type candidate struct {
	id             int64
	name           string
	resellerAccess cachedomain.AccessMode
	vispAccess     cachedomain.AccessMode
}

func (s *Service) ResolveVisps(ctx context.Context, tenant string, resellerID int64) (domain.Decision, error) {
	tenant = strings.TrimSpace(tenant)
	if tenant == "" {
		return domain.Denied(), domain.ErrInvalidTenant
	}

	ctx, span := s.tracer.Start(ctx, "permission.ResolveVisps", trace.WithAttributes(
		attribute.String("tenant", tenant),
		attribute.Int64("reseller_id", resellerID),
	))
	defer span.End()

	permits, err := s.repo.ListPermits(ctx, tenant, resellerID)
	if err != nil {
		return domain.Denied(), err
	}

	var decision domain.Decision
	switch {
	case len(permits) == 0:
		decision = domain.Denied()
	case lo.ContainsBy(permits, func(p cachedomain.ResellerPermit) bool { return p.VispID == cachedomain.AllVisps }):
		visps, err := s.repo.ListVisps(ctx, tenant)
		if err != nil {
			return domain.Denied(), err
		}
		decision = domain.Unrestricted(lo.Map(visps, func(v cachedomain.Visp, _ int) int64 { return v.SourceID }))
	default:
		decision = domain.Allowed(lo.FilterMap(permits, func(p cachedomain.ResellerPermit, _ int) (int64, bool) {
			return p.VispID, p.VispID > 0
		}))
	}

	s.metrics.IncDecision("visp", string(decision.Kind()))
	span.SetAttributes(attribute.String("decision", string(decision.Kind())))
	return decision, nil
}

func (s *Service) ResolveEntities(ctx context.Context, kind domain.Kind, tenant string, resellerID int64, vispIDs []int64) ([]domain.Entity, error) {
	tenant = strings.TrimSpace(tenant)
	if tenant == "" {
		return nil, domain.ErrInvalidTenant
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidKind, kind)
	}
	// Without visp access nothing is reachable, even unrestricted entities.
	if len(vispIDs) == 0 {
		return []domain.Entity{}, nil
	}

	ctx, span := s.tracer.Start(ctx, "permission.ResolveEntities", trace.WithAttributes(
		attribute.String("tenant", tenant),
		attribute.String("kind", string(kind)),
		attribute.Int64("reseller_id", resellerID),
		attribute.Int("visps", len(vispIDs)),
	))
	defer span.End()

	candidates, err := s.candidates(ctx, kind, tenant)
	if err != nil {
		return nil, err
	}

	var resellerSet map[int64]struct{}
	if kind.HasResellerDimension() {
		resellerSet, err = s.repo.CheckedByReseller(ctx, tenant, kind, resellerID)
		if err != nil {
			return nil, err
		}
	}
	vispSet, err := s.repo.CheckedByVisps(ctx, tenant, kind, lo.Uniq(vispIDs))
	if err != nil {
		return nil, err
	}

	out := make([]domain.Entity, 0, len(candidates))
	for _, c := range candidates {
		if kind.HasResellerDimension() && !c.resellerAccess.Unrestricted() {
			if _, ok := resellerSet[c.id]; !ok {
				continue
			}
		}
		if !c.vispAccess.Unrestricted() {
			if _, ok := vispSet[c.id]; !ok {
				continue
			}
		}
		out = append(out, domain.Entity{ID: c.id, Name: c.name})
	}
	sortEntities(out)

	logger.WithContext(ctx, s.log).Debug("entities resolved",
		zap.String("kind", string(kind)),
		zap.Int("candidates", len(candidates)),
		zap.Int("allowed", len(out)),
	)
	return out, nil
}

// ResolveEntityDecision wraps ResolveEntities in a Decision, Denied when nothing is reachable.
func (s *Service) ResolveEntityDecision(ctx context.Context, kind domain.Kind, tenant string, resellerID int64, vispIDs []int64) (domain.Decision, error) {
	entities, err := s.ResolveEntities(ctx, kind, tenant, resellerID, vispIDs)
	if err != nil {
		return domain.Denied(), err
	}
	decision := domain.Allowed(lo.Map(entities, func(e domain.Entity, _ int) int64 { return e.ID }))
	s.metrics.IncDecision(string(kind), string(decision.Kind()))
	return decision, nil
}

func (s *Service) candidates(ctx context.Context, kind domain.Kind, tenant string) ([]candidate, error) {
	switch kind {
	case domain.KindService:
		rows, err := s.repo.ListServices(ctx, tenant)
		return lo.Map(rows, func(r cachedomain.Service, _ int) candidate {
			return candidate{r.SourceID, r.Name, r.ResellerAccess, r.VispAccess}
		}), err
	case domain.KindStatus:
		rows, err := s.repo.ListStatuses(ctx, tenant)
		return lo.Map(rows, func(r cachedomain.Status, _ int) candidate {
			return candidate{r.SourceID, r.Name, r.ResellerAccess, r.VispAccess}
		}), err
	case domain.KindCenter:
		rows, err := s.repo.ListCenters(ctx, tenant)
		return lo.Map(rows, func(r cachedomain.Center, _ int) candidate {
			return candidate{r.SourceID, r.Name, cachedomain.AccessUnrestricted, r.VispAccess}
		}), err
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrInvalidKind, kind)
}

func sortEntities(entities []domain.Entity) {
	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].Name != entities[j].Name {
			return entities[i].Name < entities[j].Name
		}
		return entities[i].ID < entities[j].ID
	})
}
