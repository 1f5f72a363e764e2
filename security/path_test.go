package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: "/"},
		{name: "simple", input: "/docs/about.md", expected: "/docs/about.md"},
		{name: "no leading slash", input: "health", expected: "/health"},
		{name: "double slashes", input: "//health", expected: "/health"},
		{name: "dot segments", input: "/docs/../users.yml", expected: "/users.yml"},
		{name: "encoded space", input: "/docs/my%20notes.txt", expected: "/docs/my notes.txt"},
		{name: "bad escape", input: "/docs/%zz", expected: ""},
		{name: "unsafe chars", input: "/docs/<script>", expected: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizePath(tt.input))
		})
	}
}

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"about.md", "about.md"},
		{"changes.txt", "changes.txt"},
		{"my notes.txt", "my notes.txt"},
		{"ümlaut.md", "ümlaut.md"},
		{"", ""},
		{".", ""},
		{"..", ""},
		{".env", ""},
		{"../users.yml", ""},
		{"a/b.md", ""},
		{`a\b.md`, ""},
		{"c:evil.md", ""},
		{"nul\x00.md", ""},
		{"tab\t.md", ""},
		{strings.Repeat("a", 256), ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, SafeFilename(tt.input), "input %q", tt.input)
	}
}
