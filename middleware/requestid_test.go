package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/goflash/flashcms/app"
	"github.com/goflash/flashcms/ctx"
)

func ridApp(cfg ...RequestIDConfig) app.App {
	a := app.New()
	a.Use(RequestID(cfg...))
	a.GET("/", func(c ctx.Ctx) error {
		id, _ := RequestIDFromContext(c.Context())
		return c.String(http.StatusOK, id)
	})
	return a
}

func TestRequestIDGenerated(t *testing.T) {
	rec := httptest.NewRecorder()
	ridApp().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	id := rec.Header().Get("X-Request-ID")
	assert.Len(t, id, 32)
	assert.Equal(t, id, rec.Body.String())
}

func TestRequestIDFromClient(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-id")
	ridApp().ServeHTTP(rec, req)
	assert.Equal(t, "client-id", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "client-id", rec.Body.String())
}

func TestRequestIDOverlongReplaced(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("a", 200))
	ridApp().ServeHTTP(rec, req)
	assert.Len(t, rec.Header().Get("X-Request-ID"), 32)
}

func TestRequestIDCustomHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	ridApp(RequestIDConfig{Header: "X-Trace"}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Trace"))
	assert.Empty(t, rec.Header().Get("X-Request-ID"))
}
