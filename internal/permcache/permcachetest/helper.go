// Package permcachetest provides in-memory cache and source databases for tests.
package permcachetest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/ispreport/internal/permcache/domain"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dsnReplacer = strings.NewReplacer("/", "_", " ", "_")

// OpenMemory opens a private shared-cache in-memory sqlite database named after the test.
func OpenMemory(t *testing.T, suffix string) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", dsnReplacer.Replace(t.Name()), suffix)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// NewCacheDB returns a migrated permission cache database.
func NewCacheDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := OpenMemory(t, "cache")
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

var sourceSchema = []string{
	`CREATE TABLE Hreseller (Reseller_Id INTEGER, ResellerName TEXT, ISEnable TEXT)`,
	`CREATE TABLE Hvisp (Visp_Id INTEGER, VispName TEXT, ISEnable TEXT)`,
	`CREATE TABLE Hcenter (Center_Id INTEGER, CenterName TEXT, ISEnable TEXT, VispAccess TEXT)`,
	`CREATE TABLE Hsupporter (Supporter_Id INTEGER, SupporterName TEXT, ISEnable TEXT)`,
	`CREATE TABLE Hstatus (Status_Id INTEGER, StatusName TEXT, ISEnable TEXT, ResellerAccess TEXT, VispAccess TEXT)`,
	`CREATE TABLE Hservice (Service_Id INTEGER, ServiceName TEXT, ISEnable TEXT, IsDel TEXT, ResellerAccess TEXT, VispAccess TEXT)`,
	`CREATE TABLE Hservice_reselleraccess (Service_Id INTEGER, Reseller_Id INTEGER, Checked TEXT)`,
	`CREATE TABLE Hstatus_reselleraccess (Status_Id INTEGER, Reseller_Id INTEGER, Checked TEXT)`,
	`CREATE TABLE Hservice_vispaccess (Service_Id INTEGER, Visp_Id INTEGER, Checked TEXT)`,
	`CREATE TABLE Hstatus_vispaccess (Status_Id INTEGER, Visp_Id INTEGER, Checked TEXT)`,
	`CREATE TABLE Hcenter_vispaccess (Center_Id INTEGER, Visp_Id INTEGER, Checked TEXT)`,
	`CREATE TABLE Hreseller_permit (Reseller_Id INTEGER, Visp_Id INTEGER, PermitItem_Id INTEGER, ISPermit TEXT)`,
}

// NewSourceDB returns an operational source database holding empty reference tables.
func NewSourceDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	db := OpenMemory(t, "source_"+name)
	for _, stmt := range sourceSchema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create source schema: %v", err)
		}
	}
	return db
}

// Exec runs seed statements and fails the test on the first error.
func Exec(t *testing.T, db *gorm.DB, stmts ...string) {
	t.Helper()
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
}

// Sources serves fixed tenant databases in insertion order.
type Sources struct {
	order []string
	dbs   map[string]*gorm.DB
}

func NewSources() *Sources {
	return &Sources{dbs: make(map[string]*gorm.DB)}
}

func (s *Sources) Add(tenant string, db *gorm.DB) *Sources {
	if _, ok := s.dbs[tenant]; !ok {
		s.order = append(s.order, tenant)
	}
	s.dbs[tenant] = db
	return s
}

func (s *Sources) Names() []string {
	return append([]string(nil), s.order...)
}

func (s *Sources) DB(tenant string) (*gorm.DB, string, error) {
	db, ok := s.dbs[tenant]
	if !ok {
		return nil, tenant, fmt.Errorf("unknown tenant %q", tenant)
	}
	return db, tenant, nil
}
