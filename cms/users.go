package cms

import (
	"errors"
	"net/http"

	"github.com/goflash/flashcms/credential"
	"github.com/goflash/flashcms/ctx"
	"github.com/goflash/flashcms/middleware"
	"github.com/goflash/flashcms/render"
	"github.com/goflash/flashcms/validate"
)

const (
	msgInvalidCredentials = "Invalid Credentials"
	msgUsernameTaken      = "This username has already been taken."
)

type signInFields struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Redirect string `json:"redirect"`
}

type signUpFields struct {
	Username string `json:"username" validate:"username"`
	Password string `json:"password" validate:"strongpassword"`
}

func (s *Server) signInForm(c ctx.Ctx) error {
	data := render.UserFormData{Redirect: c.Query("redirect")}
	return s.render(c, http.StatusOK, render.PageSignIn, page(c, "Sign In", "", data))
}

func (s *Server) signIn(c ctx.Ctx) error {
	var f signInFields
	if err := bindForm(c, &f); err != nil {
		return err
	}
	l := ctx.LoggerFromContext(c.Context())

	if !s.users.Verify(f.Username, f.Password) {
		l.Warn("sign in failed", "user", f.Username)
		data := render.UserFormData{Username: f.Username, Redirect: f.Redirect}
		return s.render(c, http.StatusUnprocessableEntity, render.PageSignIn, page(c, "Sign In", msgInvalidCredentials, data))
	}

	signInSession(c, f.Username)
	l.Info("signed in", "user", f.Username)
	return redirectWithFlash(c, safeRedirect(f.Redirect), "Welcome!")
}

func (s *Server) signOut(c ctx.Ctx) error {
	sess := middleware.SessionFromCtx(c)
	if user := sess.GetString(sessionUserKey); user != "" {
		ctx.LoggerFromContext(c.Context()).Info("signed out", "user", user)
	}
	sess.Clear()
	sess.Regenerate()
	return redirectWithFlash(c, "/", "You have been signed out.")
}

func (s *Server) signUpForm(c ctx.Ctx) error {
	return s.render(c, http.StatusOK, render.PageSignUp, page(c, "Sign Up", "", render.UserFormData{}))
}

// signUp checks the username is free before it checks its shape, so a taken
// name is reported as taken whatever else is wrong with the form.
func (s *Server) signUp(c ctx.Ctx) error {
	var f signUpFields
	if err := bindForm(c, &f); err != nil {
		return err
	}
	fail := func(msg string) error {
		return s.render(c, http.StatusUnprocessableEntity, render.PageSignUp,
			page(c, "Sign Up", msg, render.UserFormData{Username: f.Username}))
	}

	taken, err := s.users.Exists(f.Username)
	if err != nil {
		return err
	}
	if taken {
		return fail(msgUsernameTaken)
	}
	if err := validate.Struct(f); err != nil {
		return fail(validate.FirstMessage(err))
	}

	switch err := s.users.Add(f.Username, f.Password); {
	case errors.Is(err, credential.ErrUserExists):
		return fail(msgUsernameTaken)
	case errors.Is(err, credential.ErrInvalidUsername):
		return fail(validate.MsgInvalidUsername)
	case errors.Is(err, credential.ErrWeakPassword):
		return fail(validate.MsgInvalidPassword)
	case err != nil:
		return err
	}

	signInSession(c, f.Username)
	ctx.LoggerFromContext(c.Context()).Info("account created", "user", f.Username)
	return redirectWithFlash(c, "/", "Your account has been created.")
}

// signInSession records username and moves the session to a fresh id.
func signInSession(c ctx.Ctx, username string) {
	sess := middleware.SessionFromCtx(c)
	sess.Set(sessionUserKey, username)
	sess.Regenerate()
}
