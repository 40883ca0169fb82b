package permcache

import (
	"github.com/smallbiznis/ispreport/internal/permcache/refresher"
	"github.com/smallbiznis/ispreport/internal/permcache/repository"
	"github.com/smallbiznis/ispreport/internal/permcache/syncer"
	"github.com/smallbiznis/ispreport/internal/source"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("permcache",
	fx.Provide(repository.Provide),
	fx.Provide(func(r *source.Registry) syncer.Sources { return r }),
	fx.Provide(syncer.New),
	fx.Provide(func(s *syncer.Syncer) refresher.Syncer { return s }),
	fx.Invoke(func(db *gorm.DB) error { return repository.Migrate(db) }),
)
