package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/ispreport/internal/observability/context"
	"github.com/smallbiznis/ispreport/pkg/tenantctx"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-Id"

// MiddlewareConfig controls request logging.
type MiddlewareConfig struct {
	Base  *zap.Logger
	Debug bool
	// ErrorClassifier maps a handler error to the (type, code) pair sent to the client.
	ErrorClassifier func(err error) (string, string)
}

// GinMiddleware stores request id and tenant on the request context and logs
// one line per request once the handlers are done.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	base := cfg.Base
	return func(c *gin.Context) {
		started := time.Now()

		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		ctx := obscontext.WithRequestID(c.Request.Context(), id)
		if tenant := strings.TrimSpace(c.Param("tenant")); tenant != "" {
			ctx = tenantctx.WithTenant(ctx, tenant)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(started)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}
		if last := c.Errors.Last(); last != nil && cfg.ErrorClassifier != nil {
			errType, errCode := cfg.ErrorClassifier(last.Err)
			fields = append(fields, zap.String("error_type", errType), zap.String("error_code", errCode))
			if cfg.Debug {
				fields = append(fields, zap.Error(last.Err))
			}
		}

		log := base
		if log == nil {
			log = zap.L()
		}
		log = WithContext(c.Request.Context(), log)
		switch {
		case route == "/health" || route == "/metrics":
			log.Debug("http request", fields...)
		case status >= http.StatusInternalServerError:
			log.Error("http request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("http request", fields...)
		default:
			log.Info("http request", fields...)
		}
	}
}
