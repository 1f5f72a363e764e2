package app

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goflash/flashcms/ctx"
)

// Error is an error carrying the HTTP status a handler wants to answer with.
// Message is safe to show to users.
type Error struct {
	Status  int
	Message string
	Err     error
}

// NewError returns an *Error with the given status and user-facing message.
func NewError(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// WrapError returns an *Error that keeps err as its cause.
func WrapError(status int, message string, err error) *Error {
	return &Error{Status: status, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var he *Error
	if errors.As(err, &he) && he.Status != 0 {
		return he.Status
	}
	return http.StatusInternalServerError
}

// defaultErrorHandler logs the error and writes its status as plain text
// unless the response has already started.
func defaultErrorHandler(c ctx.Ctx, err error) {
	status := StatusOf(err)
	l := ctx.LoggerFromContext(c.Context())
	if status >= http.StatusInternalServerError {
		l.Error("request failed", "error", err, "path", c.Path())
	}
	if c.WroteHeader() {
		return
	}
	_ = c.String(status, http.StatusText(status))
}

// methodNotAllowedHandler returns a handler for 405 Method Not Allowed responses.
func methodNotAllowedHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})
}
