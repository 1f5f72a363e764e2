package middleware

import (
	"time"

	"github.com/goflash/flashcms/app"
	"github.com/goflash/flashcms/ctx"
)

// Logger returns middleware that logs one line per request using slog:
// method, path, route, status, duration, remote address and user agent.
// When RequestID runs earlier in the chain the request logger already carries
// the request id.
//
// When the handler returns an error before writing anything, the logged
// status is the one the error handler is about to write.
func Logger() app.Middleware {
	return func(next app.Handler) app.Handler {
		return func(c ctx.Ctx) error {
			start := time.Now()
			err := next(c)
			dur := time.Since(start)

			status := c.StatusCode()
			if status == 0 {
				if err != nil {
					status = app.StatusOf(err)
				} else {
					status = 200
				}
			}

			ua, remote := "", ""
			if r := c.Request(); r != nil {
				ua = r.UserAgent()
				remote = r.RemoteAddr
			}

			attrs := []any{
				"method", c.Method(),
				"path", c.Path(),
				"route", c.Route(),
				"status", status,
				"duration_ms", float64(dur.Microseconds()) / 1000.0,
				"remote", remote,
				"user_agent", ua,
			}
			ctx.LoggerFromContext(c.Context()).Info("request", attrs...)
			return err
		}
	}
}
