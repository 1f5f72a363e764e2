package cms

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/goflash/flashcms/app"
	"github.com/goflash/flashcms/ctx"
	"github.com/goflash/flashcms/middleware"
	"github.com/goflash/flashcms/render"
	"github.com/goflash/flashcms/security"
)

// sessionUserKey holds the signed-in username in the session.
const sessionUserKey = "username"

const msgSignInRequired = "You must be signed in to do that."

// currentUser returns the signed-in username or "".
func currentUser(c ctx.Ctx) string {
	return middleware.SessionFromCtx(c).GetString(sessionUserKey)
}

// page builds the data shared by every view. A non-empty msg is shown in the
// flash area instead of the pending session flash, which then stays queued.
func page(c ctx.Ctx, title, msg string, data any) render.Page {
	if msg == "" {
		msg = middleware.SessionFromCtx(c).Flash()
	}
	return render.Page{
		Title:     title,
		User:      currentUser(c),
		Flash:     msg,
		CSRFToken: middleware.CSRFToken(c),
		Data:      data,
	}
}

func (s *Server) render(c ctx.Ctx, status int, name string, p render.Page) error {
	b, err := s.views.Render(name, p)
	if err != nil {
		return err
	}
	return c.HTML(status, b)
}

// redirectWithFlash queues msg for the next page and sends the client home.
func redirectWithFlash(c ctx.Ctx, to, msg string) error {
	middleware.SessionFromCtx(c).AddFlash(msg)
	return c.Redirect(http.StatusFound, to)
}

// requireUser lets signed-in users through and sends everybody else home.
func (s *Server) requireUser(next app.Handler) app.Handler {
	return func(c ctx.Ctx) error {
		if currentUser(c) == "" {
			return redirectWithFlash(c, "/", msgSignInRequired)
		}
		return next(c)
	}
}

// safeRedirect turns a user supplied redirect target into a local path.
// Anything that is not a clean absolute path falls back to "/".
func safeRedirect(raw string) string {
	p := security.SanitizePath(raw)
	if p == "" {
		return "/"
	}
	return (&url.URL{Path: p}).EscapedPath()
}

// handleError renders the error page for everything handlers and middleware
// return. Server errors are logged with their cause; the page only shows
// the status text.
func (s *Server) handleError(c ctx.Ctx, err error) {
	status := app.StatusOf(err)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
	}

	l := ctx.LoggerFromContext(c.Context())
	if status >= http.StatusInternalServerError {
		l.Error("request failed", "error", err, "path", c.Path(), "status", status)
	} else {
		l.Debug("request rejected", "error", err, "path", c.Path(), "status", status)
	}
	if c.WroteHeader() {
		return
	}

	msg := http.StatusText(status)
	var he *app.Error
	if errors.As(err, &he) && he.Message != "" && status < http.StatusInternalServerError {
		msg = he.Message
	}
	p := render.Page{
		Title:     http.StatusText(status),
		User:      currentUser(c),
		CSRFToken: middleware.CSRFToken(c),
		Data:      render.ErrorData{Status: status, Message: msg},
	}
	b, rerr := s.views.Render(render.PageError, p)
	if rerr != nil {
		l.Error("error page failed", "error", rerr)
		_ = c.String(status, msg)
		return
	}
	_ = c.HTML(status, b)
}

// bindForm decodes the posted form into v, ignoring fields v does not name.
// Malformed bodies become 400 errors.
func bindForm(c ctx.Ctx, v any) error {
	if err := c.BindForm(v, ctx.BindOptions{}); err != nil {
		return app.WrapError(http.StatusBadRequest, "The form could not be read.", err)
	}
	return nil
}
