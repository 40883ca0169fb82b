package domain

import (
	"context"
	"errors"
)

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidKind   = errors.New("invalid_kind")
)

// Snapshot is the complete cache content of one tenant.
type Snapshot struct {
	Tenant string

	Resellers  []Reseller
	Visps      []Visp
	Centers    []Center
	Supporters []Supporter
	Statuses   []Status
	Services   []Service

	ServiceResellerAccess []ServiceResellerAccess
	StatusResellerAccess  []StatusResellerAccess
	ServiceVispAccess     []ServiceVispAccess
	StatusVispAccess      []StatusVispAccess
	CenterVispAccess      []CenterVispAccess

	Permits []ResellerPermit
}

// Counts returns row counts per table, keyed by table name.
func (s Snapshot) Counts() map[string]int {
	return map[string]int{
		Reseller{}.TableName():              len(s.Resellers),
		Visp{}.TableName():                  len(s.Visps),
		Center{}.TableName():                len(s.Centers),
		Supporter{}.TableName():             len(s.Supporters),
		Status{}.TableName():                len(s.Statuses),
		Service{}.TableName():               len(s.Services),
		ServiceResellerAccess{}.TableName(): len(s.ServiceResellerAccess),
		StatusResellerAccess{}.TableName():  len(s.StatusResellerAccess),
		ServiceVispAccess{}.TableName():     len(s.ServiceVispAccess),
		StatusVispAccess{}.TableName():      len(s.StatusVispAccess),
		CenterVispAccess{}.TableName():      len(s.CenterVispAccess),
		ResellerPermit{}.TableName():        len(s.Permits),
	}
}

// Entity is the common projection of the named cache tables.
type Entity struct {
	ID   int64
	Name string
}

type Repository interface {
	HasTenant(ctx context.Context, tenant string) (bool, error)
	Tenants(ctx context.Context) ([]string, error)

	FindReseller(ctx context.Context, tenant string, username string) (*Reseller, error)
	ListPermits(ctx context.Context, tenant string, resellerID int64) ([]ResellerPermit, error)

	ListVisps(ctx context.Context, tenant string) ([]Visp, error)
	ListServices(ctx context.Context, tenant string) ([]Service, error)
	ListStatuses(ctx context.Context, tenant string) ([]Status, error)
	ListCenters(ctx context.Context, tenant string) ([]Center, error)
	ListSupporters(ctx context.Context, tenant string) ([]Supporter, error)

	CheckedByReseller(ctx context.Context, tenant string, kind Kind, resellerID int64) (map[int64]struct{}, error)
	CheckedByVisps(ctx context.Context, tenant string, kind Kind, vispIDs []int64) (map[int64]struct{}, error)

	ReplaceTenant(ctx context.Context, snap Snapshot) error

	CreateSyncRun(ctx context.Context, run *SyncRun) error
	ListSyncRuns(ctx context.Context, tenant string, limit int) ([]SyncRun, error)
}
