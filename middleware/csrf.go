// Package middleware provides the cross-cutting pieces of the CMS request
// pipeline: sessions, CSRF protection, logging, request ids, panic recovery,
// body limits, compression, rate limiting, timeouts, tracing and health checks.
package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/goflash/flashcms/app"
	"github.com/goflash/flashcms/ctx"
)

// CSRFFormField is the form field HTML forms carry the token in.
const CSRFFormField = "csrf_token"

type csrfTokenKey struct{}

// CSRFConfig configures the CSRF middleware.
//
// The middleware implements the double-submit cookie pattern: a random token
// is kept in a cookie and every unsafe request (POST, PUT, PATCH, DELETE) must
// echo it back, either in HeaderName or in the csrf_token form field.
//
// Example:
//
//	a.Use(middleware.CSRF(middleware.CSRFConfig{
//		CookieSecure: cfg.SecureCookies,
//		TTL:          12 * time.Hour,
//	}))
type CSRFConfig struct {
	// CookieName specifies the name of the CSRF cookie. Default "_csrf".
	CookieName string
	// HeaderName is checked before the form field. Default "X-CSRF-Token".
	HeaderName string
	// TokenLength sets the length of the generated token in bytes. Default 32.
	TokenLength int
	CookiePath  string
	// CookieDomain sets the domain attribute of the CSRF cookie.
	// Leave empty for current domain only.
	CookieDomain   string
	CookieSecure   bool
	CookieHTTPOnly bool
	CookieSameSite http.SameSite
	TTL            time.Duration
}

// DefaultCSRFConfig returns the defaults used for zero fields of a CSRFConfig.
func DefaultCSRFConfig() CSRFConfig {
	return CSRFConfig{
		CookieName:     "_csrf",
		HeaderName:     "X-CSRF-Token",
		TokenLength:    32,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteLaxMode,
		TTL:            12 * time.Hour,
	}
}

// CSRF returns middleware that provides CSRF protection using the
// double-submit cookie pattern.
//
// Behavior:
//   - Safe methods (GET, HEAD, OPTIONS) get a token cookie when missing.
//   - Unsafe methods must present the cookie plus the same value in the header
//     or the csrf_token form field, otherwise the request fails with 403.
//   - Tokens are compared in constant time.
//
// The current token is available to handlers through CSRFToken so templates
// can embed it in forms.
func CSRF(cfgs ...CSRFConfig) app.Middleware {
	cfg := DefaultCSRFConfig()
	if len(cfgs) > 0 {
		cfg = mergeCSRFConfig(cfg, cfgs[0])
	}
	return func(next app.Handler) app.Handler {
		return func(c ctx.Ctx) error {
			var cookieTok string
			if ck, err := c.Request().Cookie(cfg.CookieName); err == nil {
				cookieTok = ck.Value
			}

			switch c.Method() {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				if cookieTok == "" {
					cookieTok = generateCSRFToken(cfg.TokenLength)
					setCSRFCookie(c, cfg, cookieTok)
				}
				c.Set(csrfTokenKey{}, cookieTok)
				return next(c)
			}

			if cookieTok == "" {
				return app.NewError(http.StatusForbidden, "CSRF token missing")
			}
			sent := c.Request().Header.Get(cfg.HeaderName)
			if sent == "" {
				sent = c.FormValue(CSRFFormField)
			}
			if sent == "" || !compareTokens(cookieTok, sent) {
				return app.NewError(http.StatusForbidden, "CSRF token invalid")
			}
			c.Set(csrfTokenKey{}, cookieTok)
			return next(c)
		}
	}
}

// CSRFToken returns the token for the current request, or "" when the CSRF
// middleware is not installed.
func CSRFToken(c ctx.Ctx) string {
	s, _ := c.Get(csrfTokenKey{}).(string)
	return s
}

func mergeCSRFConfig(def, cfg CSRFConfig) CSRFConfig {
	if cfg.CookieName == "" {
		cfg.CookieName = def.CookieName
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = def.HeaderName
	}
	if cfg.TokenLength <= 0 {
		cfg.TokenLength = def.TokenLength
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = def.CookiePath
	}
	if cfg.CookieSameSite == 0 {
		cfg.CookieSameSite = def.CookieSameSite
	}
	if cfg.TTL == 0 {
		cfg.TTL = def.TTL
	}
	return cfg
}

func setCSRFCookie(c ctx.Ctx, cfg CSRFConfig, tok string) {
	http.SetCookie(c.ResponseWriter(), &http.Cookie{
		Name:     cfg.CookieName,
		Value:    tok,
		Path:     cfg.CookiePath,
		Domain:   cfg.CookieDomain,
		Secure:   cfg.CookieSecure,
		HttpOnly: cfg.CookieHTTPOnly,
		SameSite: cfg.CookieSameSite,
		Expires:  time.Now().Add(cfg.TTL),
	})
}

// generateCSRFToken creates a random token of length bytes, URL-safe encoded.
func generateCSRFToken(length int) string {
	b := make([]byte, length)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func compareTokens(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
