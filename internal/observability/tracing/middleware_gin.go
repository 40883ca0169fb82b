package tracing

import (
	"net/http"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/ispreport/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// GinMiddleware opens a server span per request, continuing any incoming trace.
// The span is renamed to the matched route once the handler chain has run.
func GinMiddleware() gin.HandlerFunc {
	tracer := Tracer("http")
	propagator := otel.GetTextMapPropagator()

	return func(c *gin.Context) {
		req := c.Request
		parent := propagator.Extract(req.Context(), propagation.HeaderCarrier(req.Header))
		ctx, span := tracer.Start(parent, req.Method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.Request = req.WithContext(ctx)
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		span.SetName(req.Method + " " + route)
		span.SetAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("http.route", route),
			attribute.Int("http.response.status_code", status),
		)
		if id := obscontext.RequestIDFromContext(ctx); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}
		if tenant := c.Param("tenant"); tenant != "" {
			span.SetAttributes(attribute.String("tenant", tenant))
		}

		if status < http.StatusInternalServerError {
			return
		}
		for _, e := range c.Errors {
			span.RecordError(e.Err)
		}
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}
