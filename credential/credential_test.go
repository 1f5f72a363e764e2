package credential

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "users.yml"), WithCost(bcrypt.MinCost))
}

func writeUsers(t *testing.T, s *Store, users map[string]string) {
	t.Helper()
	b, err := yaml.Marshal(users)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), b, 0o600))
}

func TestLoadMissingFile(t *testing.T) {
	s := newTestStore(t)
	users, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.False(t, s.Verify("admin", "secret"))
}

func TestLoadEmptyAndMalformed(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), nil, 0o600))
	users, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, users)

	require.NoError(t, os.WriteFile(s.Path(), []byte("- not\n- a map\n"), 0o600))
	_, err = s.Load()
	assert.Error(t, err)
	assert.False(t, s.Verify("admin", "secret"))
}

func TestVerify(t *testing.T) {
	s := newTestStore(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	writeUsers(t, s, map[string]string{"admin": string(hash), "broken": "password"})

	assert.True(t, s.Verify("admin", "secret"))
	assert.False(t, s.Verify("admin", "wrong"))
	assert.False(t, s.Verify("not", "valid"))
	assert.False(t, s.Verify("broken", "password"))
	assert.False(t, s.Verify("", ""))
}

func TestAddAndRemove(t *testing.T) {
	s := newTestStore(t)
	writeUsers(t, s, map[string]string{"test": "password"})

	require.NoError(t, s.Add("valid", "Credentials1!"))
	assert.True(t, s.Verify("valid", "Credentials1!"))

	users, err := s.Load()
	require.NoError(t, err)
	assert.Contains(t, users, "test")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users["valid"]), []byte("Credentials1!")))

	assert.ErrorIs(t, s.Add("valid", "Credentials1!"), ErrUserExists)
	assert.ErrorIs(t, s.Add("invalid!", "Password1!"), ErrInvalidUsername)
	assert.ErrorIs(t, s.Add("other", "weak"), ErrWeakPassword)
	assert.ErrorIs(t, s.Add("other", "Aa1!"+strings.Repeat("x", 80)), ErrWeakPassword)

	ok, err := s.Exists("valid")
	require.NoError(t, err)
	assert.True(t, ok)

	names, err := s.Usernames()
	require.NoError(t, err)
	assert.Equal(t, []string{"test", "valid"}, names)

	require.NoError(t, s.Remove("valid"))
	assert.ErrorIs(t, s.Remove("valid"), ErrUserNotFound)
	ok, err = s.Exists("valid")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddCreatesParentDir(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nested", "users.yml"), WithCost(bcrypt.MinCost))
	require.NoError(t, s.Add("admin", "Password1!"))
	assert.True(t, s.Verify("admin", "Password1!"))
}

func TestConcurrentAdds(t *testing.T) {
	s := newTestStore(t)
	names := []string{"alice", "bob", "carol", "dave"}
	var wg sync.WaitGroup
	for _, n := range names {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			assert.NoError(t, s.Add(n, "Password1!"))
		}(n)
	}
	wg.Wait()
	got, err := s.Usernames()
	require.NoError(t, err)
	assert.Equal(t, names, got)
}

func TestWithCostBounds(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewStore("x", WithCost(0)).cost)
	assert.Equal(t, bcrypt.MinCost, NewStore("x", WithCost(bcrypt.MinCost)).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewStore("x").cost)
}
