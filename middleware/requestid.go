package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/goflash/flashcms/app"
	"github.com/goflash/flashcms/ctx"
)

// RequestIDConfig configures the RequestID middleware.
// Header sets the request/response header name (default: X-Request-ID).
type RequestIDConfig struct {
	Header string
}

type ridKey struct{}

// RequestID returns middleware that tags each request with an id. An id sent
// by the client in the header is kept, otherwise a random one is generated.
// The id is echoed in the response header, stored in the request context and
// attached to the request logger, so every log line of the request carries it.
func RequestID(cfgs ...RequestIDConfig) app.Middleware {
	cfg := RequestIDConfig{Header: "X-Request-ID"}
	if len(cfgs) > 0 && cfgs[0].Header != "" {
		cfg.Header = cfgs[0].Header
	}
	return func(next app.Handler) app.Handler {
		return func(c ctx.Ctx) error {
			id := c.Request().Header.Get(cfg.Header)
			if id == "" || len(id) > 128 {
				id = newID()
			}
			c.Header(cfg.Header, id)

			rc := context.WithValue(c.Context(), ridKey{}, id)
			l := ctx.LoggerFromContext(rc).With("request_id", id)
			c.SetRequest(c.Request().WithContext(ctx.ContextWithLogger(rc, l)))
			return next(c)
		}
	}
}

// RequestIDFromContext returns the request ID from the context, if available.
func RequestIDFromContext(c context.Context) (string, bool) {
	s, ok := c.Value(ridKey{}).(string)
	return s, ok && s != ""
}

func newID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
