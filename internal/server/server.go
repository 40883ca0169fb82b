package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/ispreport/internal/config"
	"github.com/smallbiznis/ispreport/internal/observability"
	obslogger "github.com/smallbiznis/ispreport/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/ispreport/internal/observability/metrics"
	obstracing "github.com/smallbiznis/ispreport/internal/observability/tracing"
	cachedomain "github.com/smallbiznis/ispreport/internal/permcache/domain"
	"github.com/smallbiznis/ispreport/internal/permcache/syncer"
	permissiondomain "github.com/smallbiznis/ispreport/internal/permission/domain"
	reportdomain "github.com/smallbiznis/ispreport/internal/report/domain"
	"github.com/smallbiznis/ispreport/internal/source"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	observability.HTTPModule,
	fx.Provide(registerGin),
	fx.Provide(func(r *source.Registry) TenantSource { return r }),
	fx.Provide(func(s *syncer.Syncer) CacheSyncer { return s }),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

// TenantSource lists the configured operational sources.
type TenantSource interface {
	Names() []string
}

// CacheSyncer refreshes the permission cache on demand.
type CacheSyncer interface {
	SyncTenant(ctx context.Context, tenant, trigger string) (*cachedomain.SyncRun, error)
	SyncAll(ctx context.Context, trigger string) ([]*cachedomain.SyncRun, error)
}

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type ServerParams struct {
	fx.In

	Engine      *gin.Engine
	Log         *zap.Logger
	Tenants     TenantSource
	Permissions permissiondomain.Service
	Reports     reportdomain.Service
	Cache       cachedomain.Repository
	Syncer      CacheSyncer
}

type Server struct {
	engine      *gin.Engine
	log         *zap.Logger
	tenants     TenantSource
	permissions permissiondomain.Service
	reports     reportdomain.Service
	cache       cachedomain.Repository
	syncer      CacheSyncer
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:      p.Engine,
		log:         p.Log.Named("http.server"),
		tenants:     p.Tenants,
		permissions: p.Permissions,
		reports:     p.Reports,
		cache:       p.Cache,
		syncer:      p.Syncer,
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api/v1")
	api.GET("/tenants", s.ListTenants)
	api.POST("/cache/sync", s.SyncAllTenants)

	tenant := api.Group("/tenants/:tenant")
	tenant.GET("/resellers/:reseller/profile", s.GetResellerProfile)
	tenant.GET("/resellers/:reseller/visps", s.GetVispDecision)
	tenant.GET("/resellers/:reseller/entities/:kind", s.ListResellerEntities)
	tenant.POST("/reports", s.CreateReport)
	tenant.POST("/cache/sync", s.SyncTenant)
	tenant.GET("/cache/runs", s.ListSyncRuns)
}
