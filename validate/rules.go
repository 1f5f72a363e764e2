package validate

import (
	"strings"
	"unicode"

	"github.com/goflash/flashcms/security"
)

// User-facing messages for the CMS form rules.
const (
	MsgNameRequired     = "A name is required."
	MsgInvalidName      = "Please enter a valid name."
	MsgInvalidExtension = "Please enter a valid file extension (.txt or .md)."
	MsgInvalidUsername  = "Please enter a valid username (letters and digits only)."
	MsgInvalidPassword  = "Please key in a valid password."
)

// DocExtensions lists the accepted document extensions, without the dot.
var DocExtensions = []string{"txt", "md"}

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// passwordSymbols are the symbols a strong password must use at least one of.
const passwordSymbols = "#?!@$%^&*-"

// NormalizeDocName trims spaces around each dot-separated part of name.
// "  notes . md " becomes "notes.md".
func NormalizeDocName(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.Join(parts, ".")
}

// DocNameProblem returns "" when name is a usable document name, otherwise
// the message explaining what is wrong with it. The name is normalised with
// NormalizeDocName first. Accepted names always pass security.SafeFilename.
func DocNameProblem(name string) string {
	n := NormalizeDocName(name)
	if n == "" {
		return MsgNameRequired
	}
	if security.SafeFilename(n) != n || strings.ContainsFunc(n, unicode.IsControl) {
		return MsgInvalidName
	}
	parts := strings.Split(n, ".")
	if len(parts) != 2 || parts[0] == "" {
		return MsgInvalidName
	}
	for _, ext := range DocExtensions {
		if parts[1] == ext {
			return ""
		}
	}
	return MsgInvalidExtension
}

// ValidUsername reports whether s is a non-empty run of ASCII letters and digits.
func ValidUsername(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// StrongPassword reports whether s has at least 8 characters, at most
// MaxPasswordBytes bytes, and includes an upper-case letter, a lower-case
// letter, a digit and one of #?!@$%^&*-.
func StrongPassword(s string) bool {
	if len([]rune(s)) < 8 || len(s) > MaxPasswordBytes || strings.ContainsAny(s, "\r\n") {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}
