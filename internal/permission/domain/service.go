// Package domain defines reseller permission resolution over the permission cache.
package domain

import (
	"context"
	"errors"

	cachedomain "github.com/smallbiznis/ispreport/internal/permcache/domain"
)

var (
	ErrInvalidTenant    = errors.New("invalid_tenant")
	ErrInvalidKind      = errors.New("invalid_kind")
	ErrInvalidUsername  = errors.New("invalid_username")
	ErrCacheEmpty       = errors.New("cache_empty")
	ErrResellerNotFound = errors.New("reseller_not_found")
)

type Kind = cachedomain.Kind

const (
	KindService = cachedomain.KindService
	KindStatus  = cachedomain.KindStatus
	KindCenter  = cachedomain.KindCenter
)

type Entity struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Profile is everything a reseller may pick from when creating a service.
type Profile struct {
	Tenant             string   `json:"tenant"`
	Reseller           Entity   `json:"reseller"`
	Visps              []Entity `json:"visps"`
	Services           []Entity `json:"services"`
	Statuses           []Entity `json:"statuses"`
	Centers            []Entity `json:"centers"`
	Supporters         []Entity `json:"supporters"`
	DefaultStatusID    *int64   `json:"default_status_id"`
	DefaultSupporterID *int64   `json:"default_supporter_id"`
}

type Service interface {
	// ResolveVisps derives the visps a reseller is permitted on.
	ResolveVisps(ctx context.Context, tenant string, resellerID int64) (Decision, error)
	// ResolveEntities lists the entities of kind the reseller may use on the given visps.
	ResolveEntities(ctx context.Context, kind Kind, tenant string, resellerID int64, vispIDs []int64) ([]Entity, error)
	ResolveEntityDecision(ctx context.Context, kind Kind, tenant string, resellerID int64, vispIDs []int64) (Decision, error)
	Profile(ctx context.Context, tenant, username string) (*Profile, error)
}
