// Package security holds input hygiene helpers for request paths and the file
// names that address documents on disk.
package security

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// allow only safe URL path characters (RFC 3986 + common web safe set)
var safePathRegex = regexp.MustCompile(`^[a-zA-Z0-9/_\-\.\~ ]*$`)

// SanitizePath normalizes, decodes, and validates a request path.
// Returns "" if invalid.
func SanitizePath(rawPath string) string {
	if rawPath == "" {
		return "/"
	}
	decoded, err := url.PathUnescape(rawPath)
	if err != nil {
		return ""
	}
	clean := path.Clean(decoded)
	if !strings.HasPrefix(clean, "/") {
		clean = "/" + clean
	}
	if !safePathRegex.MatchString(clean) {
		return ""
	}
	return clean
}

// SafeFilename returns raw when it can be joined to a directory without
// leaving it: a single path element that is not hidden, carries no
// separators, no NUL or control bytes, and no parent references.
// Returns "" otherwise.
//
// Examples:
//
//	SafeFilename("about.md")      // "about.md"
//	SafeFilename("my notes.txt")  // "my notes.txt"
//	SafeFilename("../users.yml")  // ""
//	SafeFilename(".env")          // ""
func SafeFilename(raw string) string {
	if raw == "" || len(raw) > 255 {
		return ""
	}
	if strings.HasPrefix(raw, ".") || strings.ContainsAny(raw, `/\:`) {
		return ""
	}
	for _, r := range raw {
		if r < 0x20 || r == 0x7f {
			return ""
		}
	}
	return raw
}
