package observability

import (
	"github.com/smallbiznis/ispreport/internal/observability/logger"
	"github.com/smallbiznis/ispreport/internal/observability/metrics"
	"github.com/smallbiznis/ispreport/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		func(cfg Config) logger.Config {
			return logger.Config{
				ServiceName:         cfg.ServiceName,
				Environment:         cfg.Environment,
				Version:             cfg.Version,
				Level:               cfg.LogLevel,
				Format:              cfg.LogFormat,
				IncludeCaller:       true,
				IncludeStackOnError: cfg.Debug(),
			}
		},
		logger.New,
		func(cfg Config) tracing.Config {
			return tracing.Config{
				Enabled:          cfg.OtelEnabled,
				ServiceName:      cfg.ServiceName,
				ServiceVersion:   cfg.Version,
				Environment:      cfg.Environment,
				ExporterEndpoint: cfg.OtelExporterEndpoint,
				SamplingRatio:    cfg.OtelSamplingRatio,
			}
		},
		tracing.NewProvider,
		func(cfg Config) metrics.Config {
			return metrics.Config{ServiceName: cfg.ServiceName, Environment: cfg.Environment}
		},
		metrics.CacheWithConfig,
	),
	// Forces provider construction so spans are exported from the first request.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)

// HTTPModule adds request metrics; only the server needs it.
var HTTPModule = fx.Module("observability.http",
	fx.Provide(metrics.NewHTTPMetrics),
)
