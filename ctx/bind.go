package ctx

import (
	"net/url"
	"reflect"
	"strings"

	ms "github.com/mitchellh/mapstructure"
)

// newMSDecoder is a package-level hook to allow tests to stub decoder creation.
var newMSDecoder = ms.NewDecoder

// multipartMemory bounds the in-memory part of a parsed multipart body.
const multipartMemory = 32 << 20

// BindOptions customizes how form and map binding decode payloads into structs.
//
// Defaults when options are omitted:
//   - ErrorUnused = true  (unknown fields cause an error)
//   - WeaklyTypedInput = false (no implicit type coercion)
//
// If an options value is provided explicitly, its zero-values are honored as-is.
// Forms that carry extra fields (such as a CSRF token) usually pass
// BindOptions{} to ignore them.
type BindOptions struct {
	// WeaklyTypedInput allows common type coercions, e.g., "10" -> 10 for int fields.
	WeaklyTypedInput bool
	// ErrorUnused when true returns an error for unexpected fields.
	ErrorUnused bool
}

// BindMap binds fields from the provided map into v using mapstructure.
// Keys must match the struct's `json` tag names (or field names if the tag is missing).
//
// Example:
//
//	type SignIn struct {
//		Username string `json:"username"`
//		Password string `json:"password"`
//	}
//	var in SignIn
//	err := c.BindMap(&in, map[string]any{"username": "admin", "password": "s3cret"})
func (c *DefaultContext) BindMap(v any, m map[string]any, opts ...BindOptions) error {
	return bindMap(v, m, opts...)
}

func bindMap(v any, m map[string]any, opts ...BindOptions) error {
	var o BindOptions
	if len(opts) > 0 {
		o = opts[0]
	} else {
		o.ErrorUnused = true
	}

	var targetType reflect.Type
	rv := reflect.ValueOf(v)
	if rv.IsValid() && rv.Kind() == reflect.Ptr && !rv.IsNil() && rv.Elem().Kind() == reflect.Struct {
		targetType = rv.Elem().Type()
	}

	dec, err := newMSDecoder(&ms.DecoderConfig{
		TagName:          "json",
		Result:           v,
		WeaklyTypedInput: o.WeaklyTypedInput,
		ErrorUnused:      o.ErrorUnused,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(m); err != nil {
		if fe := mapMapStructureError(err, o, targetType); fe != nil {
			return fe
		}
		return err
	}
	return nil
}

// BindForm collects form body fields and binds them into v.
// Supports application/x-www-form-urlencoded and multipart/form-data (textual fields only).
//
// Example:
//
//	// Body: name=notes.md&csrf_token=...
//	var f struct{ Name string `json:"name"` }
//	_ = c.BindForm(&f, ctx.BindOptions{})
func (c *DefaultContext) BindForm(v any, opts ...BindOptions) error {
	m, err := c.collectFormMap()
	if err != nil {
		return err
	}
	return bindMap(v, m, opts...)
}

// collectFormMap parses the request form and returns the first value per key.
func (c *DefaultContext) collectFormMap() (map[string]any, error) {
	if err := c.r.ParseForm(); err != nil {
		return nil, err
	}
	if ct := c.r.Header.Get("Content-Type"); strings.HasPrefix(ct, "multipart/") && c.r.MultipartForm == nil {
		if err := c.r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, err
		}
	}
	out := valuesToMap(c.r.PostForm)
	if c.r.MultipartForm != nil {
		for k, vals := range c.r.MultipartForm.Value {
			if _, ok := out[k]; !ok && len(vals) > 0 {
				out[k] = vals[0]
			}
		}
	}
	return out, nil
}

// valuesToMap converts url.Values into map[string]any taking the first value for each key.
func valuesToMap(v url.Values) map[string]any {
	out := make(map[string]any, len(v))
	for k, vals := range v {
		if len(vals) > 0 {
			out[k] = vals[0]
		}
	}
	return out
}

// mapMapStructureError converts mapstructure errors into FieldErrors with friendly messages.
func mapMapStructureError(err error, o BindOptions, targetType reflect.Type) error {
	s := err.Error()
	// "... has invalid keys: a, b"
	if o.ErrorUnused {
		const marker = "has invalid keys:"
		if idx := strings.Index(s, marker); idx != -1 {
			fe := map[string]string{}
			for _, p := range strings.Split(s[idx+len(marker):], ",") {
				if k := strings.Trim(strings.TrimSpace(p), " .;:"); k != "" {
					fe[k] = ErrFieldUnexpected.Error()
				}
			}
			if len(fe) > 0 {
				return fieldErrorsFromMap(fe)
			}
		}
	}
	// "cannot decode 'age' from string into int"
	if !o.WeaklyTypedInput {
		if field, ok := extractFieldFromMapStructureTypeError(s); ok {
			if ft, ok := findExpectedFieldType(targetType, field); ok {
				return fieldErrorsFromMap(map[string]string{field: expectedTypeLabel(ft) + " " + ErrFieldTypeExpected.Error()})
			}
			return fieldErrorsFromMap(map[string]string{field: ErrFieldInvalidType.Error()})
		}
	}
	return nil
}

// extractFieldFromMapStructureTypeError extracts the field name from a mapstructure type error string.
func extractFieldFromMapStructureTypeError(s string) (string, bool) {
	if strings.Contains(s, " error(s) decoding:") {
		lines := strings.Split(s, "\n")
		for i := len(lines) - 1; i >= 0; i-- {
			if line := strings.TrimSpace(lines[i]); line != "" {
				s = line
				break
			}
		}
	}
	for _, marker := range []string{"cannot decode '", "invalid type for '"} {
		if start := strings.Index(s, marker); start != -1 {
			start += len(marker)
			end := strings.Index(s[start:], "'")
			if end == -1 {
				return "", false
			}
			return s[start : start+end], true
		}
	}
	// "* 'age' expected type 'int', got unconvertible type 'string'"
	s2 := strings.TrimSpace(strings.TrimPrefix(s, "* "))
	q1 := strings.IndexByte(s2, '\'')
	if q1 == -1 {
		return "", false
	}
	q2 := strings.IndexByte(s2[q1+1:], '\'')
	if q2 == -1 {
		return "", false
	}
	if strings.Contains(s2[q1+1+q2+1:], " expected type '") {
		return s2[q1+1 : q1+1+q2], true
	}
	return "", false
}

// findExpectedFieldType finds the struct field type by matching json tag name (or field name if no tag).
func findExpectedFieldType(t reflect.Type, jsonField string) (reflect.Type, bool) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, false
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Tag.Get("json")
		if idx := strings.Index(name, ","); idx >= 0 {
			name = name[:idx]
		}
		if name == "-" {
			continue
		}
		if name != "" && strings.EqualFold(name, jsonField) {
			return f.Type, true
		}
		if strings.EqualFold(f.Name, jsonField) {
			return f.Type, true
		}
	}
	return nil, false
}

func expectedTypeLabel(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "int"
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return "uint"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.Bool:
		return "bool"
	case reflect.String:
		return "string"
	case reflect.Array, reflect.Slice:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	default:
		return t.Kind().String()
	}
}
