package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goflash/flashcms/app"
	"github.com/goflash/flashcms/ctx"
)

type sessionContextKey struct{}

// flashKey holds the pending one-shot message inside Session.Values.
const flashKey = "_flash"

// Store abstracts session persistence for the session middleware.
type Store interface {
	Get(id string) (map[string]any, bool)
	Save(id string, data map[string]any, ttl time.Duration) error
	Delete(id string) error
}

// MemoryStore is an in-memory session store with TTL. Sessions do not
// survive a restart and are not shared between processes.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]entry
}

type entry struct {
	v   map[string]any
	exp time.Time
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{data: make(map[string]entry)} }

func (m *MemoryStore) Get(id string) (map[string]any, bool) {
	m.mu.RLock()
	e, ok := m.data[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		_ = m.Delete(id)
		return nil, false
	}
	return copyMap(e.v), true
}

func (m *MemoryStore) Save(id string, data map[string]any, ttl time.Duration) error {
	if id == "" {
		return errors.New("empty session id")
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.data[id] = entry{v: copyMap(data), exp: exp}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	delete(m.data, id)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions, expired ones included until purged.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Purge removes expired sessions and returns how many were dropped.
func (m *MemoryStore) Purge(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.data {
		if !e.exp.IsZero() && now.After(e.exp) {
			delete(m.data, id)
			n++
		}
	}
	return n
}

// StartJanitor purges expired sessions every interval until ctx is done.
// The returned channel is closed once the janitor goroutine has exited.
func (m *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		defer close(done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				m.Purge(now)
			}
		}
	}()
	return done
}

func copyMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Session is the per-request view of a session.
type Session struct {
	ID         string
	Values     map[string]any
	changed    bool
	regenerate bool
}

func (s *Session) Get(key string) (any, bool) { v, ok := s.Values[key]; return v, ok }
func (s *Session) Set(key string, v any)      { s.Values[key] = v; s.changed = true }
func (s *Session) Delete(key string)          { delete(s.Values, key); s.changed = true }

// GetString returns the value stored under key when it is a string.
func (s *Session) GetString(key string) string {
	v, _ := s.Values[key].(string)
	return v
}

// Clear drops every value, the pending flash included.
func (s *Session) Clear() {
	s.Values = map[string]any{}
	s.changed = true
}

// AddFlash stores a message to show on the next rendered page. A later call
// replaces an earlier unread message.
func (s *Session) AddFlash(msg string) { s.Set(flashKey, msg) }

// Flash returns the pending message and removes it from the session.
func (s *Session) Flash() string {
	msg, ok := s.Values[flashKey].(string)
	if !ok {
		return ""
	}
	s.Delete(flashKey)
	return msg
}

// Regenerate moves the session to a fresh id when the response is written.
// Call it when the privilege level changes, e.g. after sign-in.
func (s *Session) Regenerate() {
	s.regenerate = true
	s.changed = true
}

// SessionConfig configures the session middleware.
type SessionConfig struct {
	Store      Store
	TTL        time.Duration
	CookieName string
	CookiePath string
	Domain     string
	Secure     bool
	HTTPOnly   bool
	SameSite   http.SameSite
	// Secret, when set, signs the cookie value with HMAC-SHA256 so forged or
	// tampered ids are ignored.
	Secret []byte
}

func defaultSessionConfig() SessionConfig {
	return SessionConfig{
		TTL:        24 * time.Hour,
		CookieName: "flashcms.sid",
		CookiePath: "/",
		HTTPOnly:   true,
		SameSite:   http.SameSiteLaxMode,
	}
}

// Sessions returns middleware that loads a session before the handler runs
// and saves it right before the response header is written.
//
// Example:
//
//	a.Use(middleware.Sessions(middleware.SessionConfig{Secret: []byte(cfg.SessionSecret)}))
//	a.POST("/users/signout", func(c ctx.Ctx) error {
//		s := middleware.SessionFromCtx(c)
//		s.Delete("username")
//		s.AddFlash("You have been signed out.")
//		return c.Redirect(http.StatusFound, "/")
//	})
func Sessions(cfg SessionConfig) app.Middleware {
	def := defaultSessionConfig()
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.TTL == 0 {
		cfg.TTL = def.TTL
	}
	if cfg.CookieName == "" {
		cfg.CookieName = def.CookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = def.CookiePath
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = def.SameSite
	}

	return func(next app.Handler) app.Handler {
		return func(c ctx.Ctx) error {
			sess := loadSession(c.Request(), cfg)
			c.Set(sessionContextKey{}, sess)

			flushed := false
			flush := func() {
				if flushed {
					return
				}
				flushed = true
				if !sess.changed {
					return
				}
				if sess.regenerate && sess.ID != "" {
					_ = cfg.Store.Delete(sess.ID)
					sess.ID = ""
				}
				if sess.ID == "" {
					sess.ID = newSessionID()
				}
				if err := cfg.Store.Save(sess.ID, sess.Values, cfg.TTL); err != nil {
					ctx.LoggerFromContext(c.Context()).Error("session save failed", "error", err)
					return
				}
				writeSessionCookie(c, sess.ID, cfg)
			}
			c.SetResponseWriter(&headerWriteInterceptor{rw: c.ResponseWriter(), before: flush})

			err := next(c)
			flush()
			return err
		}
	}
}

// SessionFromCtx returns the Session loaded by the Sessions middleware, or
// an empty detached session when the middleware is not installed.
func SessionFromCtx(c ctx.Ctx) *Session {
	if s, ok := c.Get(sessionContextKey{}).(*Session); ok {
		return s
	}
	return &Session{Values: map[string]any{}}
}

func loadSession(r *http.Request, cfg SessionConfig) *Session {
	if id := readSessionID(r, cfg); id != "" {
		if vals, ok := cfg.Store.Get(id); ok {
			return &Session{ID: id, Values: vals}
		}
	}
	// unknown or missing id: the id is minted on first change
	return &Session{Values: map[string]any{}}
}

func readSessionID(r *http.Request, cfg SessionConfig) string {
	ck, err := r.Cookie(cfg.CookieName)
	if err != nil || ck.Value == "" {
		return ""
	}
	if len(cfg.Secret) == 0 {
		return ck.Value
	}
	id, sig, ok := strings.Cut(ck.Value, ".")
	if !ok || !hmac.Equal([]byte(sig), []byte(signID(cfg.Secret, id))) {
		return ""
	}
	return id
}

// SignSessionID returns the cookie value carrying id under secret. With an
// empty secret the id is used as-is.
func SignSessionID(secret []byte, id string) string {
	if len(secret) == 0 {
		return id
	}
	return id + "." + signID(secret, id)
}

func signID(secret []byte, id string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func writeSessionCookie(c ctx.Ctx, id string, cfg SessionConfig) {
	http.SetCookie(c.ResponseWriter(), &http.Cookie{
		Name:     cfg.CookieName,
		Value:    SignSessionID(cfg.Secret, id),
		Path:     cfg.CookiePath,
		Domain:   cfg.Domain,
		Secure:   cfg.Secure,
		HttpOnly: cfg.HTTPOnly,
		SameSite: cfg.SameSite,
		Expires:  time.Now().Add(cfg.TTL),
	})
}

func newSessionID() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// headerWriteInterceptor invokes a callback before the first header write.
type headerWriteInterceptor struct {
	rw      http.ResponseWriter
	before  func()
	written bool
}

func (h *headerWriteInterceptor) Header() http.Header { return h.rw.Header() }

func (h *headerWriteInterceptor) WriteHeader(status int) {
	if !h.written {
		h.before()
		h.written = true
	}
	h.rw.WriteHeader(status)
}

func (h *headerWriteInterceptor) Write(p []byte) (int, error) {
	if !h.written {
		h.WriteHeader(http.StatusOK)
	}
	return h.rw.Write(p)
}
