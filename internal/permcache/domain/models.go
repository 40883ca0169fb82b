// Package domain contains the tenant-scoped mirror of reseller, visp and access tables
// pulled from each operational source.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Reseller is an account that creates services on behalf of end users.
type Reseller struct {
	ID         uint   `gorm:"primaryKey"`
	SourceName string `gorm:"size:64;not null;uniqueIndex:ux_permcache_resellers_source,priority:1;index:ix_permcache_resellers_name,priority:1"`
	SourceID   int64  `gorm:"not null;uniqueIndex:ux_permcache_resellers_source,priority:2"`
	Name       string `gorm:"size:64;not null"`
	NameNorm   string `gorm:"size:64;not null;index:ix_permcache_resellers_name,priority:2"`
	IsEnabled  bool   `gorm:"not null"`
}

func (Reseller) TableName() string { return "permcache_resellers" }

type Visp struct {
	ID         uint   `gorm:"primaryKey"`
	SourceName string `gorm:"size:64;not null;uniqueIndex:ux_permcache_visps_source,priority:1"`
	SourceID   int64  `gorm:"not null;uniqueIndex:ux_permcache_visps_source,priority:2"`
	Name       string `gorm:"size:64;not null"`
	IsEnabled  bool   `gorm:"not null"`
}

func (Visp) TableName() string { return "permcache_visps" }

type Center struct {
	ID         uint       `gorm:"primaryKey"`
	SourceName string     `gorm:"size:64;not null;uniqueIndex:ux_permcache_centers_source,priority:1"`
	SourceID   int64      `gorm:"not null;uniqueIndex:ux_permcache_centers_source,priority:2"`
	Name       string     `gorm:"size:64;not null"`
	IsEnabled  bool       `gorm:"not null"`
	VispAccess AccessMode `gorm:"size:16;not null"`
}

func (Center) TableName() string { return "permcache_centers" }

type Supporter struct {
	ID         uint   `gorm:"primaryKey"`
	SourceName string `gorm:"size:64;not null;uniqueIndex:ux_permcache_supporters_source,priority:1"`
	SourceID   int64  `gorm:"not null;uniqueIndex:ux_permcache_supporters_source,priority:2"`
	Name       string `gorm:"size:64;not null"`
	IsEnabled  bool   `gorm:"not null"`
}

func (Supporter) TableName() string { return "permcache_supporters" }

type Status struct {
	ID             uint       `gorm:"primaryKey"`
	SourceName     string     `gorm:"size:64;not null;uniqueIndex:ux_permcache_statuses_source,priority:1"`
	SourceID       int64      `gorm:"not null;uniqueIndex:ux_permcache_statuses_source,priority:2"`
	Name           string     `gorm:"size:64;not null"`
	IsEnabled      bool       `gorm:"not null"`
	ResellerAccess AccessMode `gorm:"size:16;not null"`
	VispAccess     AccessMode `gorm:"size:16;not null"`
}

func (Status) TableName() string { return "permcache_statuses" }

type Service struct {
	ID             uint       `gorm:"primaryKey"`
	SourceName     string     `gorm:"size:64;not null;uniqueIndex:ux_permcache_services_source,priority:1"`
	SourceID       int64      `gorm:"not null;uniqueIndex:ux_permcache_services_source,priority:2"`
	Name           string     `gorm:"size:132;not null"`
	IsEnabled      bool       `gorm:"not null"`
	IsDeleted      bool       `gorm:"not null"`
	ResellerAccess AccessMode `gorm:"size:16;not null"`
	VispAccess     AccessMode `gorm:"size:16;not null"`
}

func (Service) TableName() string { return "permcache_services" }

type ServiceResellerAccess struct {
	ID         uint   `gorm:"primaryKey"`
	SourceName string `gorm:"size:64;not null;uniqueIndex:ux_permcache_service_reseller,priority:1"`
	ServiceID  int64  `gorm:"not null;uniqueIndex:ux_permcache_service_reseller,priority:2"`
	ResellerID int64  `gorm:"not null;uniqueIndex:ux_permcache_service_reseller,priority:3"`
	Checked    bool   `gorm:"not null"`
}

func (ServiceResellerAccess) TableName() string { return "permcache_service_reseller_access" }

type StatusResellerAccess struct {
	ID         uint   `gorm:"primaryKey"`
	SourceName string `gorm:"size:64;not null;uniqueIndex:ux_permcache_status_reseller,priority:1"`
	StatusID   int64  `gorm:"not null;uniqueIndex:ux_permcache_status_reseller,priority:2"`
	ResellerID int64  `gorm:"not null;uniqueIndex:ux_permcache_status_reseller,priority:3"`
	Checked    bool   `gorm:"not null"`
}

func (StatusResellerAccess) TableName() string { return "permcache_status_reseller_access" }

type ServiceVispAccess struct {
	ID         uint   `gorm:"primaryKey"`
	SourceName string `gorm:"size:64;not null;uniqueIndex:ux_permcache_service_visp,priority:1"`
	ServiceID  int64  `gorm:"not null;uniqueIndex:ux_permcache_service_visp,priority:2"`
	VispID     int64  `gorm:"not null;uniqueIndex:ux_permcache_service_visp,priority:3"`
	Checked    bool   `gorm:"not null"`
}

func (ServiceVispAccess) TableName() string { return "permcache_service_visp_access" }

type StatusVispAccess struct {
	ID         uint   `gorm:"primaryKey"`
	SourceName string `gorm:"size:64;not null;uniqueIndex:ux_permcache_status_visp,priority:1"`
	StatusID   int64  `gorm:"not null;uniqueIndex:ux_permcache_status_visp,priority:2"`
	VispID     int64  `gorm:"not null;uniqueIndex:ux_permcache_status_visp,priority:3"`
	Checked    bool   `gorm:"not null"`
}

func (StatusVispAccess) TableName() string { return "permcache_status_visp_access" }

type CenterVispAccess struct {
	ID         uint   `gorm:"primaryKey"`
	SourceName string `gorm:"size:64;not null;uniqueIndex:ux_permcache_center_visp,priority:1"`
	CenterID   int64  `gorm:"not null;uniqueIndex:ux_permcache_center_visp,priority:2"`
	VispID     int64  `gorm:"not null;uniqueIndex:ux_permcache_center_visp,priority:3"`
	Checked    bool   `gorm:"not null"`
}

func (CenterVispAccess) TableName() string { return "permcache_center_visp_access" }

// ResellerPermit authorises a reseller on a visp. VispID 0 means every visp.
type ResellerPermit struct {
	ID           uint   `gorm:"primaryKey"`
	SourceName   string `gorm:"size:64;not null;index:ix_permcache_permits_reseller,priority:1"`
	ResellerID   int64  `gorm:"not null;index:ix_permcache_permits_reseller,priority:2"`
	VispID       int64  `gorm:"not null"`
	PermitItemID *int64
	IsPermit     bool `gorm:"not null"`
}

func (ResellerPermit) TableName() string { return "permcache_reseller_permits" }

// AllVisps is the permit visp id granting access to every enabled visp.
const AllVisps int64 = 0

type SyncStatus string

const (
	SyncStatusSucceeded SyncStatus = "succeeded"
	SyncStatusFailed    SyncStatus = "failed"
)

// SyncRun records one refresh attempt of a tenant's cache.
type SyncRun struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	SourceName string            `gorm:"size:64;not null;index:ix_permcache_sync_runs_source" json:"tenant"`
	Status     SyncStatus        `gorm:"size:16;not null" json:"status"`
	Trigger    string            `gorm:"size:16;not null" json:"trigger"`
	StartedAt  time.Time         `gorm:"not null" json:"started_at"`
	FinishedAt time.Time         `gorm:"not null" json:"finished_at"`
	DurationMS int64             `gorm:"not null" json:"duration_ms"`
	Counts     datatypes.JSONMap `gorm:"type:json" json:"counts,omitempty"`
	Error      string            `gorm:"type:text" json:"error,omitempty"`
}

func (SyncRun) TableName() string { return "permcache_sync_runs" }

// Models lists every table owned by the cache, in migration order.
func Models() []any {
	return []any{
		&Reseller{},
		&Visp{},
		&Center{},
		&Supporter{},
		&Status{},
		&Service{},
		&ServiceResellerAccess{},
		&StatusResellerAccess{},
		&ServiceVispAccess{},
		&StatusVispAccess{},
		&CenterVispAccess{},
		&ResellerPermit{},
		&SyncRun{},
	}
}
