package app

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/goflash/flashcms/ctx"
)

// GET registers a handler for GET requests on the given path.
//
// Example:
//
//	a.GET("/docs/:name/edit", editForm, requireUser)
//	// order: global -> requireUser -> editForm
func (a *DefaultApp) GET(path string, h Handler, mws ...Middleware) {
	a.handle(http.MethodGet, path, h, mws...)
}

// POST registers a handler for POST requests on the given path.
func (a *DefaultApp) POST(path string, h Handler, mws ...Middleware) {
	a.handle(http.MethodPost, path, h, mws...)
}

// HEAD registers a handler for HEAD requests on the given path.
func (a *DefaultApp) HEAD(path string, h Handler, mws ...Middleware) {
	a.handle(http.MethodHead, path, h, mws...)
}

// Handle registers a handler for an arbitrary method.
func (a *DefaultApp) Handle(method, path string, h Handler, mws ...Middleware) {
	a.handle(method, path, h, mws...)
}

// handle composes route middleware around h, then the global middleware,
// and registers the result with the router. Runtime order is
// global (left-to-right) -> route (left-to-right) -> handler.
func (a *DefaultApp) handle(method, path string, h Handler, mws ...Middleware) {
	final := h
	for i := len(mws) - 1; i >= 0; i-- {
		final = mws[i](final)
	}
	final = a.compose(final)

	pattern := cleanPath(path)
	a.router.Handle(method, pattern, func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		a.serve(w, r, ps, pattern, final)
	})
}

// compose wraps h with the global middleware.
func (a *DefaultApp) compose(h Handler) Handler {
	for i := len(a.middleware) - 1; i >= 0; i-- {
		h = a.middleware[i](h)
	}
	return h
}

// serve runs one request through a pooled context: inject the logger,
// call the handler, route errors to the ErrorHandler, return the context.
func (a *DefaultApp) serve(w http.ResponseWriter, r *http.Request, ps httprouter.Params, pattern string, h Handler) {
	r = r.WithContext(ctx.ContextWithLogger(r.Context(), a.Logger()))
	c := a.pool.Get().(*ctx.DefaultContext)
	c.Reset(w, r, ps, pattern)
	if err := h(c); err != nil {
		a.onError(c, err)
	}
	c.Finish()
	a.pool.Put(c)
}
