package middleware

import (
	"net/http"

	"github.com/goflash/flashcms/app"
	"github.com/goflash/flashcms/ctx"
)

// RequestSizeConfig configures the request size limiting middleware.
//
// MaxSize is the largest accepted body in bytes. Zero or negative disables
// the limit.
type RequestSizeConfig struct {
	MaxSize int64
}

// RequestSize returns middleware that limits the size of request bodies.
//
// Requests announcing a larger Content-Length are rejected up front with a
// 413 *app.Error. The body is also wrapped in http.MaxBytesReader so chunked
// uploads without a Content-Length cannot exceed the limit either; form
// parsing then fails and the handler sees an error.
//
// Example:
//
//	a.Use(middleware.RequestSize(middleware.RequestSizeConfig{MaxSize: 1 << 20}))
func RequestSize(cfg RequestSizeConfig) app.Middleware {
	if cfg.MaxSize <= 0 {
		return func(next app.Handler) app.Handler { return next }
	}

	return func(next app.Handler) app.Handler {
		return func(c ctx.Ctx) error {
			r := c.Request()
			if r.ContentLength > cfg.MaxSize {
				ctx.LoggerFromContext(c.Context()).Warn("request size limit exceeded",
					"size", r.ContentLength,
					"limit", cfg.MaxSize,
					"path", c.Path(),
				)
				c.Header("X-Content-Type-Options", "nosniff")
				return app.NewError(http.StatusRequestEntityTooLarge, "Request entity too large")
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(c.ResponseWriter(), r.Body, cfg.MaxSize)
			}
			return next(c)
		}
	}
}
