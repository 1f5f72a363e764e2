package cms

import (
	"net/http"

	"github.com/goflash/flashcms/app"
	"github.com/goflash/flashcms/middleware"
	"github.com/goflash/flashcms/render"
)

// routes installs the middleware chain and every route.
//
// Documents live under /docs/ because the router cannot mix a catch-all
// parameter at the root with the static routes.
func (s *Server) routes() {
	a, cfg := s.app, s.cfg

	a.SetErrorHandler(s.handleError)
	a.SetNotFoundHandler(a.Wrap(func(app.Ctx) error {
		return app.NewError(http.StatusNotFound, "The page you requested does not exist.")
	}))
	a.SetMethodNotAllowedHandler(a.Wrap(func(app.Ctx) error {
		return app.NewError(http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	}))

	a.Use(
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.OTel(cfg.ServiceName),
	)
	if cfg.HTTP.Gzip {
		a.Use(middleware.Gzip())
	}
	a.Use(
		middleware.RequestSize(middleware.RequestSizeConfig{MaxSize: cfg.HTTP.MaxBodyBytes}),
		middleware.Timeout(middleware.TimeoutConfig{Duration: cfg.RequestTimeout()}),
		middleware.Sessions(middleware.SessionConfig{
			Store:    s.sessions,
			TTL:      cfg.SessionTTL(),
			Secure:   cfg.Session.SecureCookies,
			HTTPOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secret:   []byte(cfg.Session.Secret),
		}),
	)
	if cfg.Security.CSRF {
		a.Use(middleware.CSRF(middleware.CSRFConfig{
			CookieSecure:   cfg.Session.SecureCookies,
			CookieHTTPOnly: true,
		}))
	}

	a.StaticFS("/static", render.Static())
	middleware.RegisterHealthCheck(a, middleware.HealthCheckConfig{
		ServiceName:     cfg.ServiceName,
		HealthCheckFunc: s.docs.Ping,
	})

	a.GET("/", s.index)
	a.GET("/new", s.newForm, s.requireUser)
	a.POST("/new", s.create, s.requireUser)

	docs := a.Group("/docs")
	docs.GET("/:name", s.show)
	docs.GET("/:name/edit", s.editForm, s.requireUser)
	docs.POST("/:name/edit", s.update, s.requireUser)
	docs.POST("/:name/delete", s.delete, s.requireUser)
	docs.POST("/:name/duplicate", s.duplicate, s.requireUser)

	var limit []app.Middleware
	if cfg.Security.SignInRate > 0 {
		key := middleware.RemoteIP
		if cfg.Security.TrustProxy {
			key = middleware.ForwardedIP
		}
		limiter := middleware.NewSimpleIPLimiter(cfg.Security.SignInRate, cfg.SignInWindow())
		limit = append(limit, middleware.RateLimitWithKey(limiter, key))
	}

	users := a.Group("/users")
	users.GET("/signin", s.signInForm)
	users.POST("/signin", s.signIn, limit...)
	users.POST("/signout", s.signOut)
	users.GET("/signup", s.signUpForm)
	users.POST("/signup", s.signUp, limit...)
}
