package service

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"github.com/smallbiznis/ispreport/internal/observability/logger"
	cachedomain "github.com/smallbiznis/ispreport/internal/permcache/domain"
	"github.com/smallbiznis/ispreport/internal/permission/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Profile gathers what a reseller may choose from when creating a user service.
func (s *Service) Profile(ctx context.Context, tenant, username string) (*domain.Profile, error) {
	tenant = strings.TrimSpace(tenant)
	if tenant == "" {
		return nil, domain.ErrInvalidTenant
	}
	if strings.TrimSpace(username) == "" {
		return nil, domain.ErrInvalidUsername
	}

	ctx, span := s.tracer.Start(ctx, "permission.Profile", trace.WithAttributes(attribute.String("tenant", tenant)))
	defer span.End()

	populated, err := s.repo.HasTenant(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if !populated {
		return nil, domain.ErrCacheEmpty
	}

	reseller, err := s.repo.FindReseller(ctx, tenant, username)
	if err != nil {
		return nil, err
	}
	if reseller == nil {
		return nil, domain.ErrResellerNotFound
	}

	decision, err := s.ResolveVisps(ctx, tenant, reseller.SourceID)
	if err != nil {
		return nil, err
	}
	visps, err := s.repo.ListVisps(ctx, tenant)
	if err != nil {
		return nil, err
	}
	permitted := lo.Filter(visps, func(v cachedomain.Visp, _ int) bool {
		return decision.Allows(v.SourceID)
	})
	vispIDs := lo.Map(permitted, func(v cachedomain.Visp, _ int) int64 { return v.SourceID })

	profile := &domain.Profile{
		Tenant:   tenant,
		Reseller: domain.Entity{ID: reseller.SourceID, Name: reseller.Name},
		Visps: lo.Map(permitted, func(v cachedomain.Visp, _ int) domain.Entity {
			return domain.Entity{ID: v.SourceID, Name: v.Name}
		}),
	}

	policy := s.policy.Current()
	services, err := s.ResolveEntities(ctx, domain.KindService, tenant, reseller.SourceID, vispIDs)
	if err != nil {
		return nil, err
	}
	profile.Services = lo.Reject(services, func(e domain.Entity, _ int) bool { return policy.Hidden(e.ID) })

	if profile.Statuses, err = s.ResolveEntities(ctx, domain.KindStatus, tenant, reseller.SourceID, vispIDs); err != nil {
		return nil, err
	}
	if profile.Centers, err = s.ResolveEntities(ctx, domain.KindCenter, tenant, reseller.SourceID, vispIDs); err != nil {
		return nil, err
	}

	supporters, err := s.repo.ListSupporters(ctx, tenant)
	if err != nil {
		return nil, err
	}
	profile.Supporters = lo.Map(supporters, func(r cachedomain.Supporter, _ int) domain.Entity {
		return domain.Entity{ID: r.SourceID, Name: r.Name}
	})

	profile.DefaultStatusID = pickDefault(profile.Statuses, policy.DefaultStatus)
	profile.DefaultSupporterID = pickDefault(profile.Supporters, policy.DefaultSupporter)

	logger.WithContext(ctx, s.log).Debug("profile resolved",
		zap.Int64("reseller_id", reseller.SourceID),
		zap.String("visp_decision", string(decision.Kind())),
		zap.Int("services", len(profile.Services)),
	)
	return profile, nil
}

// pickDefault returns the entity named name, else the first entity.
func pickDefault(entities []domain.Entity, name string) *int64 {
	if len(entities) == 0 {
		return nil
	}
	want := strings.ToLower(strings.TrimSpace(name))
	if match, ok := lo.Find(entities, func(e domain.Entity) bool {
		return strings.ToLower(strings.TrimSpace(e.Name)) == want
	}); ok && want != "" {
		return &match.ID
	}
	id := entities[0].ID
	return &id
}
