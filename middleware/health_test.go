package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goflash/flashcms/app"
	"github.com/goflash/flashcms/ctx"
)

func TestHealthCheckHealthy(t *testing.T) {
	a := app.New()
	RegisterHealthCheck(a, HealthCheckConfig{})

	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "flashcms", body["service"])
	assert.NotContains(t, body, "error")
}

func TestHealthCheckUnhealthy(t *testing.T) {
	var seen error
	a := app.New()
	RegisterHealthCheck(a, HealthCheckConfig{
		Path:            "/healthz",
		ServiceName:     "docs",
		HealthCheckFunc: func(context.Context) error { return errors.New("data dir unreadable") },
		OnErrorFunc:     func(_ ctx.Ctx, err error) { seen = err },
	})

	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Error(t, seen)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body["status"])
	assert.Equal(t, "docs", body["service"])
	assert.Equal(t, "data dir unreadable", body["error"])
}
