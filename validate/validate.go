// Package validate wraps go-playground/validator with the rules the CMS
// forms need and turns validation failures into user-facing messages.
//
// Struct fields are reported under their json tag name, matching the names
// ctx.BindForm decodes from:
//
//	type signUpForm struct {
//		Username string `json:"username" validate:"username"`
//		Password string `json:"password" validate:"strongpassword"`
//	}
//	if err := validate.Struct(f); err != nil {
//		msg := validate.FirstMessage(err) // "Please key in a valid password."
//	}
package validate

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	validator "github.com/go-playground/validator/v10"

	"github.com/goflash/flashcms/ctx"
)

// Validator is the shared validator instance. It is safe for concurrent use;
// register extra rules during program start-up only.
var Validator = newValidator()

// MessageFunc renders a user-facing message for one failed rule.
type MessageFunc func(validator.FieldError) string

var (
	msgMu    sync.RWMutex
	messages = map[string]MessageFunc{
		"docname": func(fe validator.FieldError) string {
			s, _ := fe.Value().(string)
			return DocNameProblem(s)
		},
		"username":       func(validator.FieldError) string { return MsgInvalidUsername },
		"strongpassword": func(validator.FieldError) string { return MsgInvalidPassword },
		"required":       func(fe validator.FieldError) string { return fe.Field() + " is required" },
	}
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("docname", func(fl validator.FieldLevel) bool {
		return DocNameProblem(fl.Field().String()) == ""
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return ValidUsername(fl.Field().String())
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	return v
}

// RegisterMessage sets the message used for failures of tag.
func RegisterMessage(tag string, fn MessageFunc) {
	msgMu.Lock()
	messages[tag] = fn
	msgMu.Unlock()
}

// Struct validates v's fields according to their `validate` tags.
func Struct(v any) error { return Validator.Struct(v) }

// Var validates a single value against tag, e.g. Var(name, "username").
func Var(v any, tag string) error { return Validator.Var(v, tag) }

// Message returns the user-facing message for a single field failure.
func Message(fe validator.FieldError) string {
	msgMu.RLock()
	fn, ok := messages[fe.Tag()]
	msgMu.RUnlock()
	if ok {
		if m := fn(fe); m != "" {
			return m
		}
	}
	return fe.Error()
}

// ToFieldErrors maps field name to message. It understands validator errors
// and ctx.FieldErrors returned by form binding; other errors yield nil.
//
// Example:
//
//	if err := validate.Struct(f); err != nil {
//		fields := validate.ToFieldErrors(err) // {"name": "A name is required."}
//	}
func ToFieldErrors(err error) map[string]string {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		out := make(map[string]string, len(ves))
		for _, fe := range ves {
			if _, seen := out[fe.Field()]; !seen {
				out[fe.Field()] = Message(fe)
			}
		}
		return out
	}
	if fes, ok := ctx.AsFieldErrors(err); ok {
		out := map[string]string{}
		for _, fe := range fes.All() {
			out[fe.Field()] = fe.Message()
		}
		return out
	}
	return nil
}

// FirstMessage returns the message for the first failing field in struct
// declaration order, or "" for a nil error.
func FirstMessage(err error) string {
	if err == nil {
		return ""
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		return Message(ves[0])
	}
	if fes, ok := ctx.AsFieldErrors(err); ok {
		if all := fes.All(); len(all) > 0 {
			return all[0].Field() + ": " + all[0].Message()
		}
	}
	return err.Error()
}
