package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/goflash/flashcms/app"
	"github.com/goflash/flashcms/ctx"
)

// HealthCheckFunc reports whether a dependency is usable.
type HealthCheckFunc func(context.Context) error

// HealthCheckConfig configures the health endpoint.
type HealthCheckConfig struct {
	// Path defaults to "/health".
	Path string
	// HealthCheckFunc performs the check. Nil means always healthy.
	HealthCheckFunc HealthCheckFunc
	// OnErrorFunc is called when the check fails. Nil logs the error.
	OnErrorFunc func(ctx.Ctx, error)
	// ServiceName is reported in the body. Defaults to "flashcms".
	ServiceName string
}

// healthCheckHandler answers 200 {"status":"healthy"} or 503
// {"status":"unhealthy","error":...}.
func healthCheckHandler(cfg HealthCheckConfig) app.Handler {
	return func(c ctx.Ctx) error {
		var err error
		if cfg.HealthCheckFunc != nil {
			err = cfg.HealthCheckFunc(c.Context())
		}

		status := "healthy"
		httpStatus := http.StatusOK
		if err != nil {
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
			if cfg.OnErrorFunc != nil {
				cfg.OnErrorFunc(c, err)
			} else {
				ctx.LoggerFromContext(c.Context()).Error("health check failed", "error", err)
			}
		}

		response := map[string]any{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   cfg.ServiceName,
		}
		if err != nil {
			response["error"] = err.Error()
		}
		c.Header("Cache-Control", "no-store")
		return c.Status(httpStatus).JSON(response)
	}
}

// RegisterHealthCheck registers a GET route for the health endpoint.
//
// Example:
//
//	middleware.RegisterHealthCheck(a, middleware.HealthCheckConfig{
//		HealthCheckFunc: docs.Ping,
//	})
func RegisterHealthCheck(a app.App, cfg HealthCheckConfig) {
	if cfg.Path == "" {
		cfg.Path = "/health"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "flashcms"
	}
	a.GET(cfg.Path, healthCheckHandler(cfg))
}
