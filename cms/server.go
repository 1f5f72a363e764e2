// Package cms wires the document store, the credential store, sessions and
// the views into the flashcms web application.
package cms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/goflash/flashcms/app"
	"github.com/goflash/flashcms/config"
	"github.com/goflash/flashcms/credential"
	"github.com/goflash/flashcms/document"
	"github.com/goflash/flashcms/middleware"
	"github.com/goflash/flashcms/render"
)

// ShutdownTimeout bounds how long Run waits for in-flight requests.
const ShutdownTimeout = 5 * time.Second

// janitorInterval is how often expired sessions are purged.
const janitorInterval = time.Minute

// Server is the flashcms application.
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	app      app.App
	docs     *document.Store
	users    *credential.Store
	views    *render.Renderer
	sessions *middleware.MemoryStore
}

// New validates cfg, opens the stores and builds the routes.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	docs, err := document.NewStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	views, err := render.New()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		app:      app.New(),
		docs:     docs,
		users:    credential.NewStore(cfg.UsersFile, credential.WithCost(cfg.Security.BcryptCost)),
		views:    views,
		sessions: middleware.NewMemoryStore(),
	}
	s.app.SetLogger(logger)
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler serving the application.
func (s *Server) Handler() http.Handler { return s.app }

// Run listens on the configured address and serves until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener, which it closes on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.app,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	jctx, stopJanitor := context.WithCancel(ctx)
	janitorDone := s.sessions.StartJanitor(jctx, janitorInterval)
	defer func() {
		stopJanitor()
		<-janitorDone
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("listening", "addr", ln.Addr().String(), "data_dir", s.docs.Dir())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) && err == nil {
		err = serveErr
	}
	s.logger.Info("server stopped")
	return err
}
