package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goflash/flashcms/app"
	"github.com/goflash/flashcms/ctx"
)

// TimeoutConfig configures the Timeout middleware.
type TimeoutConfig struct {
	Duration  time.Duration // default 5s
	OnTimeout func(ctx.Ctx)
}

// Timeout returns middleware that puts a deadline on the request context.
//
// The handler keeps running on the request goroutine; store operations that
// honour the context give up once the deadline passes. If the handler then
// returns a context.DeadlineExceeded error and nothing was written yet, the
// error becomes a 504 *app.Error.
func Timeout(cfg TimeoutConfig) app.Middleware {
	if cfg.Duration <= 0 {
		cfg.Duration = 5 * time.Second
	}
	return func(next app.Handler) app.Handler {
		return func(c ctx.Ctx) error {
			tc, cancel := context.WithTimeout(c.Context(), cfg.Duration)
			defer cancel()
			c.SetRequest(c.Request().WithContext(tc))

			err := next(c)
			if err != nil && errors.Is(err, context.DeadlineExceeded) && !c.WroteHeader() {
				if cfg.OnTimeout != nil {
					cfg.OnTimeout(c)
				}
				return app.WrapError(http.StatusGatewayTimeout, http.StatusText(http.StatusGatewayTimeout), err)
			}
			return err
		}
	}
}
