package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/goflash/flashcms/app"
	"github.com/goflash/flashcms/ctx"
)

// RecoverConfig configures the panic recovery middleware.
//
// EnableStack logs the stack trace along with the panic value. Stack traces
// are never sent to clients.
// OnPanic is called synchronously after logging, e.g. for alerting.
type RecoverConfig struct {
	EnableStack bool
	OnPanic     func(ctx.Ctx, any)
}

// Recover returns middleware that turns a panic in a later handler into a
// 500 *app.Error, so the app's error handler renders the usual error page.
//
// Install it first so it also covers the other middleware:
//
//	a.Use(
//	    middleware.Recover(),
//	    middleware.RequestID(),
//	    middleware.Logger(),
//	)
func Recover(cfgs ...RecoverConfig) app.Middleware {
	var cfg RecoverConfig
	if len(cfgs) > 0 {
		cfg = cfgs[0]
	}

	return func(next app.Handler) app.Handler {
		return func(c ctx.Ctx) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				attrs := []any{"panic", fmt.Sprint(r), "method", c.Method(), "path", c.Path()}
				if cfg.EnableStack {
					attrs = append(attrs, "stack", string(debug.Stack()))
				}
				ctx.LoggerFromContext(c.Context()).Error("panic recovered", attrs...)
				if cfg.OnPanic != nil {
					cfg.OnPanic(c, r)
				}
				c.Header("X-Content-Type-Options", "nosniff")
				err = app.WrapError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), fmt.Errorf("panic: %v", r))
			}()
			return next(c)
		}
	}
}
