package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/goflash/flashcms/app"
	"github.com/goflash/flashcms/ctx"
)

func TestRecoverTurnsPanicIntoError(t *testing.T) {
	var buf bytes.Buffer
	var got any
	var handled error

	a := bufferedApp(&buf)
	a.SetErrorHandler(func(c ctx.Ctx, err error) {
		handled = err
		_ = c.String(app.StatusOf(err), "error page")
	})
	a.Use(Recover(RecoverConfig{EnableStack: true, OnPanic: func(_ ctx.Ctx, v any) { got = v }}))
	a.GET("/", func(c ctx.Ctx) error { panic("kaboom") })

	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error page", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "kaboom", got)
	assert.ErrorContains(t, handled, "panic: kaboom")
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "stack")
}

func TestRecoverPassThrough(t *testing.T) {
	a := app.New()
	a.Use(Recover())
	a.GET("/", func(c ctx.Ctx) error { return c.String(http.StatusOK, "fine") })
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fine", rec.Body.String())
}
