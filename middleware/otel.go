package middleware

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/goflash/flashcms/app"
	"github.com/goflash/flashcms/ctx"
)

const tracerName = "github.com/goflash/flashcms/middleware"

// OTelConfig configures the tracing middleware. Zero fields fall back to the
// global tracer provider and propagator and to the defaults described below.
type OTelConfig struct {
	Tracer     trace.Tracer
	Propagator propagation.TextMapPropagator
	// ServiceName is recorded as service.name on every span.
	ServiceName string
	// SpanName defaults to "METHOD route", e.g. "GET /docs/:name".
	SpanName func(ctx.Ctx) string
	// Attributes adds per-request attributes when the span starts.
	Attributes      func(ctx.Ctx) []attribute.KeyValue
	ExtraAttributes []attribute.KeyValue
	// Status maps the final HTTP status and handler error to a span status.
	// The default marks 5xx and returned errors as codes.Error.
	Status func(code int, err error) (codes.Code, string)
	// Filter returns true for requests that should not be traced.
	Filter func(ctx.Ctx) bool
	// RecordDuration adds http.server.duration_ms when the span ends.
	RecordDuration bool
}

// OTel returns tracing middleware with default settings for service.
func OTel(service string) app.Middleware {
	return OTelWithConfig(OTelConfig{ServiceName: service})
}

// OTelWithConfig returns middleware that wraps each request in a server span.
// Incoming trace context is extracted from the request headers, and the span
// context is stored in the request context for downstream code.
func OTelWithConfig(cfg OTelConfig) app.Middleware {
	if cfg.Tracer == nil {
		cfg.Tracer = otel.GetTracerProvider().Tracer(tracerName)
	}
	if cfg.Propagator == nil {
		cfg.Propagator = otel.GetTextMapPropagator()
	}
	if cfg.Status == nil {
		cfg.Status = defaultSpanStatus
	}

	return func(next app.Handler) app.Handler {
		return func(c ctx.Ctx) error {
			if cfg.Filter != nil && cfg.Filter(c) {
				return next(c)
			}

			r := c.Request()
			parent := cfg.Propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			name := ""
			if cfg.SpanName != nil {
				name = cfg.SpanName(c)
			}
			if name == "" {
				route := c.Route()
				if route == "" {
					route = c.Path()
				}
				name = c.Method() + " " + route
			}

			attrs := []attribute.KeyValue{
				attribute.String("http.request.method", c.Method()),
				attribute.String("http.route", c.Route()),
				attribute.String("url.path", c.Path()),
				attribute.String("user_agent.original", r.UserAgent()),
			}
			if cfg.ServiceName != "" {
				attrs = append(attrs, attribute.String("service.name", cfg.ServiceName))
			}
			if rid, ok := RequestIDFromContext(r.Context()); ok {
				attrs = append(attrs, attribute.String("http.request.id", rid))
			}
			if cfg.Attributes != nil {
				attrs = append(attrs, cfg.Attributes(c)...)
			}
			attrs = append(attrs, cfg.ExtraAttributes...)

			start := time.Now()
			spanCtx, span := cfg.Tracer.Start(parent, name,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()
			c.SetRequest(r.WithContext(spanCtx))

			err := next(c)

			status := c.StatusCode()
			if status == 0 {
				if err != nil {
					status = app.StatusOf(err)
				} else {
					status = http.StatusOK
				}
			}
			span.SetAttributes(attribute.Int("http.response.status_code", status))
			if cfg.RecordDuration {
				span.SetAttributes(attribute.Float64("http.server.duration_ms", float64(time.Since(start).Microseconds())/1000.0))
			}
			if err != nil {
				span.RecordError(err)
			}
			code, desc := cfg.Status(status, err)
			span.SetStatus(code, desc)
			return err
		}
	}
}

func defaultSpanStatus(code int, err error) (codes.Code, string) {
	if err != nil {
		return codes.Error, err.Error()
	}
	if code >= http.StatusInternalServerError {
		return codes.Error, http.StatusText(code)
	}
	return codes.Unset, ""
}
