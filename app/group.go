package app

import "net/http"

// Group registers routes under a shared prefix and middleware stack.
//
// Example:
//
//	users := a.Group("/users")
//	users.GET("/signin", signinForm)
//	users.POST("/signin", signin, limiter)
type Group struct {
	app        *DefaultApp
	prefix     string
	middleware []Middleware
}

// Group creates a route group. Group middleware runs after global and
// before route middleware.
func (a *DefaultApp) Group(prefix string, mw ...Middleware) *Group {
	return &Group{app: a, prefix: cleanPath(prefix), middleware: mw}
}

// Use appends middleware to the group for routes registered afterwards.
func (g *Group) Use(mw ...Middleware) { g.middleware = append(g.middleware, mw...) }

// Group creates a nested group inheriting this group's prefix and middleware.
func (g *Group) Group(prefix string, mw ...Middleware) *Group {
	child := &Group{app: g.app, prefix: joinPath(g.prefix, prefix)}
	child.middleware = append(child.middleware, g.middleware...)
	child.middleware = append(child.middleware, mw...)
	return child
}

func (g *Group) handle(method, p string, h Handler, mws ...Middleware) {
	all := make([]Middleware, 0, len(g.middleware)+len(mws))
	all = append(all, g.middleware...)
	all = append(all, mws...)
	g.app.handle(method, joinPath(g.prefix, p), h, all...)
}

func (g *Group) GET(p string, h Handler, mws ...Middleware)  { g.handle(http.MethodGet, p, h, mws...) }
func (g *Group) POST(p string, h Handler, mws ...Middleware) { g.handle(http.MethodPost, p, h, mws...) }
