package app

import (
	"io/fs"
	"log/slog"
	"net/http"
)

// App defines the public surface of the router, suitable for mocking.
// Implemented by *DefaultApp.
type App interface {
	Use(mw ...Middleware)

	GET(path string, h Handler, mws ...Middleware)
	POST(path string, h Handler, mws ...Middleware)
	HEAD(path string, h Handler, mws ...Middleware)
	Handle(method, path string, h Handler, mws ...Middleware)
	Group(prefix string, mw ...Middleware) *Group

	ServeHTTP(w http.ResponseWriter, r *http.Request)
	Mount(prefix string, h http.Handler)
	StaticFS(prefix string, fsys fs.FS)
	Wrap(h Handler) http.Handler

	SetLogger(l *slog.Logger)
	Logger() *slog.Logger

	SetErrorHandler(h ErrorHandler)
	SetNotFoundHandler(h http.Handler)
	SetMethodNotAllowedHandler(h http.Handler)
	ErrorHandler() ErrorHandler
}
