package ctx

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// fieldSentinel is a light-weight error used for errors.Is comparisons
// against FieldErrors categories.
type fieldSentinel string

func (e fieldSentinel) Error() string { return string(e) }

// Sentinel errors to detect common field error categories with errors.Is.
var (
	// ErrFieldUnexpected matches unknown/unexpected input fields.
	ErrFieldUnexpected error = fieldSentinel("unexpected")
	// ErrFieldInvalidType matches type mismatches without a known expected type.
	ErrFieldInvalidType error = fieldSentinel("invalid type")
	// ErrFieldTypeExpected matches messages such as "int type expected".
	ErrFieldTypeExpected error = fieldSentinel("type expected")
)

// FieldError is a binding error for a single field.
type FieldError interface {
	Field() string
	Message() string
}

// FieldErrors aggregates binding errors for several fields.
//
// Example:
//
//	if fe, ok := ctx.AsFieldErrors(err); ok {
//	    for _, e := range fe.All() {
//	        log.Printf("%s -> %s", e.Field(), e.Message())
//	    }
//	}
type FieldErrors interface {
	error
	All() []FieldError
}

type fieldError struct {
	field   string
	message string
}

func (e fieldError) Field() string   { return e.field }
func (e fieldError) Message() string { return e.message }
func (e fieldError) Error() string   { return fmt.Sprintf("field %s: %s", e.field, e.message) }

type fieldErrorsMap map[string]string

func (f fieldErrorsMap) Error() string {
	parts := make([]string, 0, len(f))
	for _, e := range f.All() {
		parts = append(parts, e.(fieldError).Error())
	}
	return "field validation errors: " + strings.Join(parts, "; ")
}

// Is matches when any contained message belongs to the requested category.
func (f fieldErrorsMap) Is(target error) bool {
	s, ok := target.(fieldSentinel)
	if !ok {
		return false
	}
	for _, msg := range f {
		if s == ErrFieldTypeExpected && strings.HasSuffix(msg, " "+string(s)) {
			return true
		}
		if msg == string(s) {
			return true
		}
	}
	return false
}

// All returns the contained field errors sorted by field name.
func (f fieldErrorsMap) All() []FieldError {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]FieldError, 0, len(keys))
	for _, k := range keys {
		out = append(out, fieldError{field: k, message: f[k]})
	}
	return out
}

// fieldErrorsFromMap returns nil for an empty map.
func fieldErrorsFromMap(m map[string]string) FieldErrors {
	if len(m) == 0 {
		return nil
	}
	return fieldErrorsMap(m)
}

// AsFieldErrors reports whether err carries FieldErrors.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
