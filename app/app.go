package app

import (
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/julienschmidt/httprouter"

	"github.com/goflash/flashcms/ctx"
)

// Handler is the function signature for route handlers (and the output of
// composed middleware). Returning a non-nil error delegates to the App's
// ErrorHandler.
//
// Example:
//
//	func showDocument(c app.Ctx) error {
//		name := c.ParamFilename("name")
//		if name == "" {
//			return app.NewError(http.StatusNotFound, "no such document")
//		}
//		return c.String(http.StatusOK, name)
//	}
type Handler func(ctx.Ctx) error

// Middleware transforms a Handler. Global middleware registered with Use runs
// first, then group middleware, then route middleware. A middleware may
// short-circuit by returning without calling next.
type Middleware func(Handler) Handler

// ErrorHandler translates an error returned by a handler into a response.
type ErrorHandler func(ctx.Ctx, error)

// Ctx is re-exported for package-local convenience.
type Ctx = ctx.Ctx

// DefaultApp is the router and request lifecycle owner. It implements
// http.Handler. Request contexts are pooled.
type DefaultApp struct {
	router     *httprouter.Router
	middleware []Middleware
	pool       sync.Pool
	onError    ErrorHandler
	notFound   http.Handler
	methodNA   http.Handler
	logger     *slog.Logger
}

// New creates a DefaultApp with a JSON slog logger at info level, plain 404
// and 405 handlers, and the default error handler.
//
// Example:
//
//	a := app.New()
//	a.GET("/", listDocuments)
//	_ = http.ListenAndServe(":4567", a)
func New() App {
	a := &DefaultApp{
		router: httprouter.New(),
	}
	a.pool.New = func() any { return &ctx.DefaultContext{} }

	a.router.HandleMethodNotAllowed = true
	a.SetErrorHandler(defaultErrorHandler)
	a.SetNotFoundHandler(http.NotFoundHandler())
	a.SetMethodNotAllowedHandler(methodNotAllowedHandler())
	a.SetLogger(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	a.router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.notFound.ServeHTTP(w, r)
	})
	a.router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.methodNA.ServeHTTP(w, r)
	})
	return a
}

// SetLogger sets the logger injected into every request context.
func (a *DefaultApp) SetLogger(l *slog.Logger) { a.logger = l }

// Logger returns the configured logger, or slog.Default if none is set.
func (a *DefaultApp) Logger() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return slog.Default()
}

// Use registers global middleware, applied to routes registered afterwards
// in the order added.
func (a *DefaultApp) Use(mw ...Middleware) {
	a.middleware = append(a.middleware, mw...)
}

// ServeHTTP implements http.Handler by delegating to the router.
func (a *DefaultApp) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *DefaultApp) SetErrorHandler(h ErrorHandler)            { a.onError = h }
func (a *DefaultApp) SetNotFoundHandler(h http.Handler)         { a.notFound = h }
func (a *DefaultApp) SetMethodNotAllowedHandler(h http.Handler) { a.methodNA = h }

// Wrap adapts a Handler into an http.Handler that runs the global
// middleware chain. The app uses it for the not-found page so that page is
// rendered with sessions and logging like any other route.
func (a *DefaultApp) Wrap(h Handler) http.Handler {
	final := a.compose(h)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.serve(w, r, nil, "", final)
	})
}

func (a *DefaultApp) ErrorHandler() ErrorHandler            { return a.onError }
func (a *DefaultApp) NotFoundHandler() http.Handler         { return a.notFound }
func (a *DefaultApp) MethodNotAllowedHandler() http.Handler { return a.methodNA }
