package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goflash/flashcms/ctx"
)

func TestUseNoArgsNoop(t *testing.T) {
	a := New().(*DefaultApp)
	before := len(a.middleware)
	a.Use()
	assert.Equal(t, before, len(a.middleware))
}

func TestAppGETAndMiddleware(t *testing.T) {
	a := New()
	called := 0
	a.Use(func(next Handler) Handler { return func(c Ctx) error { called++; return next(c) } })
	a.GET("/ping", func(c Ctx) error { return c.String(http.StatusOK, "pong") })

	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, 1, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestMiddlewareOrder(t *testing.T) {
	a := New()
	var order []string
	mark := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(c Ctx) error { order = append(order, name); return next(c) }
		}
	}
	a.Use(mark("global1"), mark("global2"))
	g := a.Group("/g", mark("group"))
	g.GET("/x", func(c Ctx) error { order = append(order, "handler"); return nil }, mark("route"))

	a.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/g/x", nil))
	assert.Equal(t, []string{"global1", "global2", "group", "route", "handler"}, order)
}

func TestRouteParamsAndPattern(t *testing.T) {
	a := New()
	a.GET("/docs/:name/edit", func(c Ctx) error {
		return c.String(http.StatusOK, c.Route()+"|"+c.Param("name"))
	})
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs/about.md/edit", nil))
	assert.Equal(t, "/docs/:name/edit|about.md", rec.Body.String())
}

func TestAppNotFoundAndMethodNA(t *testing.T) {
	a := New()
	a.GET("/ping", func(c Ctx) error { return c.String(http.StatusOK, "pong") })

	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCustomNotFoundThroughWrap(t *testing.T) {
	a := New()
	seen := false
	a.Use(func(next Handler) Handler { return func(c Ctx) error { seen = true; return next(c) } })
	a.SetNotFoundHandler(a.Wrap(func(c Ctx) error { return c.String(http.StatusNotFound, "custom 404") }))

	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.True(t, seen)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "custom 404", rec.Body.String())
}

func TestCustomErrorHandler(t *testing.T) {
	a := New()
	var got error
	a.SetErrorHandler(func(c Ctx, err error) {
		got = err
		_ = c.String(http.StatusTeapot, "handled")
	})
	a.GET("/e", func(c Ctx) error { return errors.New("boom") })

	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/e", nil))
	require.Error(t, got)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotNil(t, a.ErrorHandler())
}

type captureHandler struct{ msgs []string }

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.msgs = append(h.msgs, r.Message)
	return nil
}
func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func TestLoggerInjectedIntoRequest(t *testing.T) {
	a := New()
	h := &captureHandler{}
	a.SetLogger(slog.New(h))
	a.GET("/log", func(c Ctx) error {
		ctx.LoggerFromContext(c.Context()).Info("inside")
		return nil
	})
	a.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/log", nil))
	assert.Equal(t, []string{"inside"}, h.msgs)
}

func TestLoggerFallsBackToDefault(t *testing.T) {
	a := &DefaultApp{}
	assert.Equal(t, slog.Default(), a.Logger())
}

func TestHandleCustomMethodAndHEAD(t *testing.T) {
	a := New()
	a.Handle("REPORT", "/r", func(c Ctx) error { return c.String(http.StatusOK, "report") })
	a.HEAD("/h", func(c Ctx) error { return c.String(http.StatusOK, "") })

	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest("REPORT", "/r", nil))
	assert.Equal(t, "report", rec.Body.String())

	rec = httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/h", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMountAndStaticFS(t *testing.T) {
	a := New()
	a.Mount("/raw", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, "raw:"+r.URL.Path) }))
	a.StaticFS("/static", fstest.MapFS{
		"style.css":    {Data: []byte("body{}")},
		"img/logo.svg": {Data: []byte("<svg/>")},
	})

	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/raw/x/y", nil))
	assert.Equal(t, "raw:/x/y", rec.Body.String())

	rec = httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body{}", rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/css"))

	rec = httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/img/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
