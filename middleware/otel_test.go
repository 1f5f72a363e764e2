package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/goflash/flashcms/app"
	"github.com/goflash/flashcms/ctx"
)

func TestOTelMiddlewareDoesNotBlock(t *testing.T) {
	a := app.New()
	a.Use(OTel("test-svc"))
	a.GET("/", func(c ctx.Ctx) error { return c.String(http.StatusOK, "ok") })
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOTelErrorBranch(t *testing.T) {
	a := app.New()
	a.Use(OTel("svc"))
	a.GET("/docs/:name", func(c ctx.Ctx) error { return errors.New("boom") })
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs/a.md", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestOTelWithConfigOptions(t *testing.T) {
	var statuses []int
	a := app.New()
	a.Use(OTelWithConfig(OTelConfig{
		ServiceName:    "svc",
		RecordDuration: true,
		Filter:         func(c ctx.Ctx) bool { return c.Path() == "/health" },
		Status: func(code int, err error) (codes.Code, string) {
			statuses = append(statuses, code)
			if code >= 400 {
				return codes.Error, http.StatusText(code)
			}
			return codes.Ok, ""
		},
	}))

	a.GET("/", func(c ctx.Ctx) error { return c.String(http.StatusOK, "ok") })
	a.GET("/health", func(c ctx.Ctx) error { return c.String(http.StatusOK, "ok") })
	a.GET("/bad", func(c ctx.Ctx) error { return c.String(http.StatusBadRequest, "bad") })
	a.GET("/missing", func(c ctx.Ctx) error { return app.NewError(http.StatusNotFound, "missing") })

	for _, tc := range []struct {
		path string
		want int
	}{
		{"/", http.StatusOK},
		{"/health", http.StatusOK},
		{"/bad", http.StatusBadRequest},
		{"/missing", http.StatusNotFound},
	} {
		rec := httptest.NewRecorder()
		a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		assert.Equal(t, tc.want, rec.Code, tc.path)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusBadRequest, http.StatusNotFound}, statuses)
}

func TestOTelWithConfigCustomizations(t *testing.T) {
	var sawSpan bool
	a := app.New()
	a.Use(OTelWithConfig(OTelConfig{
		Tracer:      noop.NewTracerProvider().Tracer("test"),
		Propagator:  propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}),
		ServiceName: "svc2",
		SpanName:    func(c ctx.Ctx) string { return "" },
		Attributes: func(c ctx.Ctx) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("custom.attr", "v")}
		},
		ExtraAttributes: []attribute.KeyValue{attribute.String("extra.attr", "x")},
	}))
	a.GET("/x", func(c ctx.Ctx) error {
		sawSpan = trace.SpanFromContext(c.Context()) != nil
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil).WithContext(context.Background())
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, sawSpan)
}

func TestOTelSpanNameOverrideAndNoWrite(t *testing.T) {
	a := app.New()
	a.Use(OTelWithConfig(OTelConfig{
		ServiceName: "svc3",
		SpanName:    func(c ctx.Ctx) string { return "CUSTOM NAME" },
	}))
	a.GET("/empty", func(c ctx.Ctx) error { return nil })

	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/empty", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDefaultSpanStatus(t *testing.T) {
	code, _ := defaultSpanStatus(http.StatusOK, nil)
	assert.Equal(t, codes.Unset, code)
	code, _ = defaultSpanStatus(http.StatusNotFound, nil)
	assert.Equal(t, codes.Unset, code)
	code, desc := defaultSpanStatus(http.StatusBadGateway, nil)
	assert.Equal(t, codes.Error, code)
	assert.Equal(t, "Bad Gateway", desc)
	code, desc = defaultSpanStatus(http.StatusOK, errors.New("x"))
	assert.Equal(t, codes.Error, code)
	assert.Equal(t, "x", desc)
}
