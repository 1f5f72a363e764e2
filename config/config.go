// Package config loads flashcms settings from a YAML file with environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all flashcms configuration.
type Config struct {
	// ServiceName is reported by the health endpoint and on trace spans.
	ServiceName string `yaml:"service_name"`
	// Addr is the listen address, e.g. ":4567".
	Addr string `yaml:"addr"`
	// DataDir holds the documents.
	DataDir string `yaml:"data_dir"`
	// UsersFile is the YAML credential file.
	UsersFile string `yaml:"users_file"`

	Session  SessionConfig  `yaml:"session"`
	Security SecurityConfig `yaml:"security"`
	HTTP     HTTPConfig     `yaml:"http"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SessionConfig configures the session cookie.
type SessionConfig struct {
	// Secret signs the session cookie. Required, at least 32 bytes.
	Secret string `yaml:"secret"`
	TTL    string `yaml:"ttl"`
	// SecureCookies marks cookies HTTPS only.
	SecureCookies bool `yaml:"secure_cookies"`
}

// SecurityConfig configures request protection.
type SecurityConfig struct {
	CSRF       bool `yaml:"csrf"`
	BcryptCost int  `yaml:"bcrypt_cost"`
	// SignInRate is the number of sign-in and sign-up attempts allowed per
	// client address and SignInWindow.
	SignInRate   int    `yaml:"signin_rate"`
	SignInWindow string `yaml:"signin_window"`
	// TrustProxy keys rate limits by X-Forwarded-For instead of the peer address.
	TrustProxy bool `yaml:"trust_proxy"`
}

// HTTPConfig configures request handling.
type HTTPConfig struct {
	MaxBodyBytes   int64  `yaml:"max_body_bytes"`
	RequestTimeout string `yaml:"request_timeout"`
	Gzip           bool   `yaml:"gzip"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Environment variables read by Load.
const (
	EnvAddr          = "FLASHCMS_ADDR"
	EnvDataDir       = "FLASHCMS_DATA_DIR"
	EnvUsersFile     = "FLASHCMS_USERS_FILE"
	EnvSessionSecret = "FLASHCMS_SESSION_SECRET"
	EnvLogLevel      = "FLASHCMS_LOG_LEVEL"
)

// MinSecretLength is the shortest accepted session secret.
const MinSecretLength = 32

// DefaultConfig returns the built-in defaults. The session secret is left
// empty and must be configured.
func DefaultConfig() *Config {
	return &Config{
		ServiceName: "flashcms",
		Addr:        ":4567",
		DataDir:     "data",
		UsersFile:   "users.yml",
		Session: SessionConfig{
			TTL: "24h",
		},
		Security: SecurityConfig{
			CSRF:         true,
			BcryptCost:   10,
			SignInRate:   10,
			SignInWindow: "1m",
		},
		HTTP: HTTPConfig{
			MaxBodyBytes:   1 << 20,
			RequestTimeout: "10s",
			Gzip:           true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the YAML file at path on top of DefaultConfig and applies
// environment overrides. An empty path or a missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvAddr); v != "" {
		c.Addr = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvUsersFile); v != "" {
		c.UsersFile = v
	}
	if v := os.Getenv(EnvSessionSecret); v != "" {
		c.Session.Secret = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// SessionTTL returns the session lifetime, 24h when unset or malformed.
func (c *Config) SessionTTL() time.Duration { return parseDuration(c.Session.TTL, 24*time.Hour) }

// RequestTimeout returns the per-request deadline, 10s when unset or malformed.
func (c *Config) RequestTimeout() time.Duration {
	return parseDuration(c.HTTP.RequestTimeout, 10*time.Second)
}

// SignInWindow returns the rate limit window, 1m when unset or malformed.
func (c *Config) SignInWindow() time.Duration {
	return parseDuration(c.Security.SignInWindow, time.Minute)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if c.UsersFile == "" {
		errs = append(errs, errors.New("users_file is required"))
	}
	if len(c.Session.Secret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("session secret must be at least %d bytes (set %s)", MinSecretLength, EnvSessionSecret))
	}
	for name, v := range map[string]string{
		"session.ttl":            c.Session.TTL,
		"http.request_timeout":   c.HTTP.RequestTimeout,
		"security.signin_window": c.Security.SignInWindow,
	} {
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", name, v))
		}
	}
	if c.Security.BcryptCost < 4 || c.Security.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("security.bcrypt_cost must be between 4 and 31, got %d", c.Security.BcryptCost))
	}
	if c.Security.SignInRate < 0 {
		errs = append(errs, errors.New("security.signin_rate must not be negative"))
	}
	if c.HTTP.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("http.max_body_bytes must not be negative"))
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// SlogLevel parses Level. An empty level means info.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("logging.level: %w", err)
	}
	return lvl, nil
}

// NewLogger builds the slog logger described by l, writing to w.
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	lvl, _ := l.SlogLevel()
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(l.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// String renders the configuration for logs with the secret masked.
func (c *Config) String() string {
	masked := *c
	if masked.Session.Secret != "" {
		masked.Session.Secret = "***(" + strconv.Itoa(len(c.Session.Secret)) + " bytes)"
	}
	b, err := yaml.Marshal(&masked)
	if err != nil {
		return err.Error()
	}
	return string(b)
}
