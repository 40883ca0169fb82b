package source

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/smallbiznis/ispreport/internal/config"
	"github.com/smallbiznis/ispreport/internal/observability/logger"
	"github.com/smallbiznis/ispreport/pkg/db"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Opener connects to one operational source.
type Opener func(cfg config.SourceConfig) (*gorm.DB, error)

// Registry hands out one lazily opened connection per tenant.
type Registry struct {
	log     *zap.Logger
	open    Opener
	order   []string
	sources map[string]config.SourceConfig

	mu    sync.Mutex
	conns map[string]*gorm.DB
}

type RegistryParam struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
}

func NewRegistry(p RegistryParam) *Registry {
	log := p.Log.Named("source.registry")
	r := NewRegistryWithOpener(p.Config.Sources, MySQLOpener(log), log)
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return r.Close()
		},
	})
	return r
}

// NewRegistryWithOpener builds a registry with a custom connection factory.
func NewRegistryWithOpener(sources []config.SourceConfig, open Opener, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{
		log:     log,
		open:    open,
		sources: make(map[string]config.SourceConfig, len(sources)),
		conns:   make(map[string]*gorm.DB),
	}
	for _, src := range sources {
		if src.Name == "" {
			continue
		}
		if _, dup := r.sources[src.Name]; dup {
			log.Warn("duplicate source name ignored", zap.String("tenant", src.Name))
			continue
		}
		r.sources[src.Name] = src
		r.order = append(r.order, src.Name)
	}
	return r
}

// MySQLOpener opens a MariaDB source through gorm with query tracing.
func MySQLOpener(log *zap.Logger) Opener {
	return func(cfg config.SourceConfig) (*gorm.DB, error) {
		dsn := db.MySQLDSNPort(cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DB)
		conn, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
			Logger:                 logger.NewGormLogger(log, "source."+cfg.Name, logger.DefaultGormLoggerConfig()),
			SkipDefaultTransaction: true,
		})
		if err != nil {
			return nil, err
		}
		if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.DB))); err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// Names returns configured tenants in configuration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Resolve maps a requested tenant to a configured one. Empty selects the first source.
func (r *Registry) Resolve(tenant string) (string, error) {
	if tenant == "" {
		if len(r.order) == 0 {
			return "", &ConfigurationError{Tenant: tenant}
		}
		return r.order[0], nil
	}
	if _, ok := r.sources[tenant]; !ok {
		return "", &ConfigurationError{Tenant: tenant}
	}
	return tenant, nil
}

// DB returns the tenant's connection, opening it on first use.
func (r *Registry) DB(tenant string) (*gorm.DB, string, error) {
	name, err := r.Resolve(tenant)
	if err != nil {
		return nil, "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if conn, ok := r.conns[name]; ok {
		return conn, name, nil
	}
	conn, err := r.open(r.sources[name])
	if err != nil {
		return nil, name, &ConnectivityError{Tenant: name, Err: fmt.Errorf("open: %w", err)}
	}
	r.conns[name] = conn
	r.log.Info("source connected", zap.String("tenant", name))
	return conn, name, nil
}

// Close closes every opened connection.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, conn := range r.conns {
		sqlDB, err := conn.DB()
		if err == nil {
			err = sqlDB.Close()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		delete(r.conns, name)
	}
	return errors.Join(errs...)
}
