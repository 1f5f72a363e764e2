package ctx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"

	router "github.com/julienschmidt/httprouter"

	"github.com/goflash/flashcms/security"
)

// Ctx is the request/response context handed to handlers and middleware.
// It is implemented by *DefaultContext.
//
// A Ctx exposes request data (method, path, route params, query, form values)
// and response helpers for the formats the CMS serves: HTML pages, plain text
// documents, JSON health reports and redirects.
//
// Typical usage inside a handler:
//
//	a.GET("/docs/:name", func(c ctx.Ctx) error {
//	    name := c.ParamFilename("name") // "" when the parameter is unusable
//	    if name == "" {
//	        return c.Redirect(http.StatusFound, "/")
//	    }
//	    return c.String(http.StatusOK, "viewing "+name)
//	})
//
// Concurrency: Ctx is not safe for concurrent writes to the underlying
// http.ResponseWriter.
type Ctx interface {
	// Request returns the underlying *http.Request.
	Request() *http.Request
	// SetRequest replaces the underlying *http.Request, e.g. to attach a derived context.
	SetRequest(*http.Request)
	// ResponseWriter returns the underlying http.ResponseWriter.
	ResponseWriter() http.ResponseWriter
	// SetResponseWriter replaces the underlying http.ResponseWriter.
	SetResponseWriter(http.ResponseWriter)

	// Context returns the request-scoped context.Context.
	Context() context.Context
	// Method returns the HTTP method (e.g., "GET").
	Method() string
	// Path returns the raw request URL path.
	Path() string
	// Route returns the route pattern (e.g., "/docs/:name").
	Route() string
	// Param returns a path parameter by name ("" if not present).
	Param(name string) string
	// ParamFilename returns a path parameter usable as a bare file name,
	// or "" if it carries directory parts or traversal sequences.
	ParamFilename(name string) string
	// Query returns a query string parameter by key ("" if not present).
	Query(key string) string
	// FormValue returns the first value for the named form field, parsing the
	// body when needed.
	FormValue(key string) string

	// Header sets a response header key/value.
	Header(key, value string)
	// Status stages the HTTP status code to be written; returns the Ctx to allow chaining.
	Status(code int) Ctx
	// StatusCode returns the status that will be written (or 200 after an
	// implicit header write, or 0 if unset).
	StatusCode() int
	// WroteHeader reports whether the header has already been written to the client.
	WroteHeader() bool

	// String writes a text/plain body with the provided status code.
	String(status int, body string) error
	// HTML writes a text/html body with the provided status code.
	HTML(status int, body []byte) error
	// Send writes raw bytes with a specific status and content type.
	Send(status int, contentType string, b []byte) (int, error)
	// JSON serializes v as JSON. If Status() was not set, it defaults to 200.
	JSON(v any) error
	// Redirect sends a redirect response with the given status code and URL.
	Redirect(status int, url string) error

	// BindForm collects form body fields and binds them into v; see BindOptions.
	BindForm(v any, opts ...BindOptions) error

	// Get retrieves a value from the request context by key, with optional default.
	Get(key any, def ...any) any
	// Set stores a value into a derived request context and replaces the underlying request.
	Set(key, value any) Ctx
}

// DefaultContext is the concrete implementation of Ctx.
// It wraps the http.ResponseWriter and *http.Request and tracks route,
// status, and response state for each request.
type DefaultContext struct {
	w           http.ResponseWriter // underlying response writer
	r           *http.Request       // underlying request
	params      router.Params       // route parameters
	status      int                 // status code to write
	wroteHeader bool                // whether header was written
	wroteBytes  int                 // number of bytes written
	route       string              // route pattern (e.g., /docs/:name)
}

// Reset prepares the context for a new request. Used internally by the app;
// middleware and handlers should not need to call it.
func (c *DefaultContext) Reset(w http.ResponseWriter, r *http.Request, ps router.Params, route string) {
	c.w = w
	c.r = r
	c.params = ps
	c.status = 0
	c.wroteHeader = false
	c.wroteBytes = 0
	c.route = route
}

// Finish drops per-request references so pooled contexts do not pin
// requests or writers between uses.
func (c *DefaultContext) Finish() {
	c.w = nil
	c.r = nil
	c.params = nil
}

func (c *DefaultContext) Request() *http.Request              { return c.r }
func (c *DefaultContext) SetRequest(r *http.Request)          { c.r = r }
func (c *DefaultContext) ResponseWriter() http.ResponseWriter { return c.w }

// SetResponseWriter replaces the underlying http.ResponseWriter.
// Middleware use this to wrap the writer (sessions, gzip).
func (c *DefaultContext) SetResponseWriter(w http.ResponseWriter) { c.w = w }

// WroteHeader reports whether the response header has been written.
// After the header is written, changing headers or status has no effect.
func (c *DefaultContext) WroteHeader() bool { return c.wroteHeader }

// Context returns the request context.Context.
func (c *DefaultContext) Context() context.Context { return c.r.Context() }

// Set stores a value in the request context and returns the context for chaining.
// Prefer an unexported key type to avoid collisions.
//
// Example:
//
//	type userKey struct{}
//	c.Set(userKey{}, "admin")
func (c *DefaultContext) Set(key, value any) Ctx {
	ctx := context.WithValue(c.Context(), key, value)
	c.SetRequest(c.Request().WithContext(ctx))
	return c
}

// Get returns a value from the request context by key.
// If the key is not present it returns the provided default when given,
// otherwise nil.
func (c *DefaultContext) Get(key any, def ...any) any {
	v := c.Context().Value(key)
	if v != nil {
		return v
	}
	if len(def) > 0 {
		return def[0]
	}
	return nil
}

func (c *DefaultContext) Method() string { return c.r.Method }
func (c *DefaultContext) Path() string   { return c.r.URL.Path }
func (c *DefaultContext) Route() string  { return c.route }

// Param returns a path parameter by name. Returns "" if not found.
func (c *DefaultContext) Param(name string) string { return c.params.ByName(name) }

// ParamFilename returns the named path parameter as a bare file name.
// See security.SafeFilename for the accepted shapes.
//
// Example:
//
//	// Route: /docs/:name, path /docs/about.md
//	c.ParamFilename("name") // "about.md"
//	// path /docs/..%2Fusers.yml
//	c.ParamFilename("name") // ""
func (c *DefaultContext) ParamFilename(name string) string {
	return security.SafeFilename(c.Param(name))
}

// Query returns a query string parameter by key. Returns "" if not found.
func (c *DefaultContext) Query(key string) string { return c.r.URL.Query().Get(key) }

// FormValue returns the first value of the named form field. Body fields take
// precedence over query parameters, matching http.Request.FormValue.
func (c *DefaultContext) FormValue(key string) string { return c.r.FormValue(key) }

// Status stages the response status code (without writing the header yet).
// Returns the context for chaining.
//
// Example:
//
//	return c.Status(http.StatusServiceUnavailable).JSON(report)
func (c *DefaultContext) Status(code int) Ctx {
	c.status = code
	return c
}

// StatusCode returns the status code that will be written.
// If not set yet and header hasn't been written, returns 0. If the header has
// already been written without an explicit status, returns 200.
func (c *DefaultContext) StatusCode() int {
	if c.status != 0 {
		return c.status
	}
	if c.wroteHeader {
		return http.StatusOK
	}
	return 0
}

// Header sets a header on the response.
// Has no effect after the header is written.
func (c *DefaultContext) Header(key, value string) { c.w.Header().Set(key, value) }

var jsonBufPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

// JSON serializes the provided value as JSON and writes the response.
// If Status() has not been called yet, it defaults to 200 OK.
func (c *DefaultContext) JSON(v any) error {
	buf := jsonBufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer jsonBufPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		if !c.wroteHeader {
			c.writeHeader(http.StatusInternalServerError)
		}
		return err
	}
	b := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))

	status := c.status
	if status == 0 {
		status = http.StatusOK
	}
	_, err := c.Send(status, "application/json; charset=utf-8", b)
	return err
}

// String writes a plain text response with the given status and body.
//
// Example:
//
//	return c.String(http.StatusOK, doc.Content)
func (c *DefaultContext) String(status int, body string) error {
	if !c.wroteHeader {
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Header("Content-Length", strconv.Itoa(len(body)))
		c.writeHeader(status)
	}
	n, err := io.WriteString(c.w, body)
	c.wroteBytes += n
	return err
}

// HTML writes an HTML response with the given status and body.
func (c *DefaultContext) HTML(status int, body []byte) error {
	_, err := c.Send(status, "text/html; charset=utf-8", body)
	return err
}

// Send writes raw bytes with the given status and content type.
// If contentType is empty, no Content-Type header is set.
func (c *DefaultContext) Send(status int, contentType string, b []byte) (int, error) {
	if !c.wroteHeader {
		if contentType != "" {
			c.Header("Content-Type", contentType)
		}
		c.Header("Content-Length", strconv.Itoa(len(b)))
		c.writeHeader(status)
	}
	n, err := c.w.Write(b)
	c.wroteBytes += n
	return n, err
}

// Redirect sends a redirect response with the given status code and URL.
//
// Example:
//
//	return c.Redirect(http.StatusFound, "/")
func (c *DefaultContext) Redirect(status int, url string) error {
	if !c.wroteHeader {
		c.Header("Location", url)
		c.writeHeader(status)
	}
	return nil
}

func (c *DefaultContext) writeHeader(status int) {
	c.status = status
	c.w.WriteHeader(status)
	c.wroteHeader = true
}
