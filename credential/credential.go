// Package credential keeps user accounts in a YAML file mapping each
// username to a bcrypt hash of the password:
//
//	admin: $2a$10$...
//	editor: $2a$10$...
//
// A missing file means no accounts exist yet.
package credential

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/goflash/flashcms/validate"
)

var (
	// ErrUserExists is returned by Add when the username is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned by Remove for unknown usernames.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidUsername is returned by Add for names that are not letters and digits.
	ErrInvalidUsername = errors.New(validate.MsgInvalidUsername)
	// ErrWeakPassword is returned by Add for passwords failing the strength rule.
	ErrWeakPassword = errors.New(validate.MsgInvalidPassword)
)

// Store reads and writes the credential file. Every call re-reads the file
// so accounts added out of band, e.g. with the CLI, are seen immediately.
// Writes are serialised and replace the file atomically.
type Store struct {
	path string
	cost int
	mu   sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithCost sets the bcrypt cost for new hashes. Out-of-range values fall
// back to bcrypt.DefaultCost.
func WithCost(cost int) Option {
	return func(s *Store) {
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			cost = bcrypt.DefaultCost
		}
		s.cost = cost
	}
}

// NewStore returns a store backed by the YAML file at path.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{path: path, cost: bcrypt.DefaultCost}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Path returns the credential file location.
func (s *Store) Path() string { return s.path }

// Load returns the username to hash mapping. A missing or empty file yields
// an empty map.
func (s *Store) Load() (map[string]string, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("credential: read %s: %w", s.path, err)
	}
	users := map[string]string{}
	if err := yaml.Unmarshal(b, &users); err != nil {
		return nil, fmt.Errorf("credential: parse %s: %w", s.path, err)
	}
	if users == nil {
		users = map[string]string{}
	}
	return users, nil
}

// Usernames returns the known usernames in sorted order.
func (s *Store) Usernames() ([]string, error) {
	users, err := s.Load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(users))
	for u := range users {
		names = append(names, u)
	}
	sort.Strings(names)
	return names, nil
}

// Verify reports whether password matches the stored hash for username.
// Unknown users, unreadable files and malformed hashes all yield false.
func (s *Store) Verify(username, password string) bool {
	users, err := s.Load()
	if err != nil {
		return false
	}
	hash, ok := users[username]
	if !ok || username == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Exists reports whether username has an account.
func (s *Store) Exists(username string) (bool, error) {
	users, err := s.Load()
	if err != nil {
		return false, err
	}
	_, ok := users[username]
	return ok, nil
}

// Add creates an account. The username must be letters and digits only and
// the password must pass validate.StrongPassword.
func (s *Store) Add(username, password string) error {
	if !validate.ValidUsername(username) {
		return ErrInvalidUsername
	}
	if !validate.StrongPassword(password) {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("credential: hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := users[username]; ok {
		return ErrUserExists
	}
	users[username] = string(hash)
	return s.save(users)
}

// Remove deletes an account.
func (s *Store) Remove(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := users[username]; !ok {
		return ErrUserNotFound
	}
	delete(users, username)
	return s.save(users)
}

func (s *Store) save(users map[string]string) error {
	b, err := yaml.Marshal(users)
	if err != nil {
		return fmt.Errorf("credential: encode: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("credential: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("credential: write %s: %w", s.path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("credential: write %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("credential: write %s: %w", s.path, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("credential: write %s: %w", s.path, err)
	}
	return nil
}
