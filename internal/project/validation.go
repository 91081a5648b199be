// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package project

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/ManuGH/mbconfig/internal/schema"
	"github.com/ManuGH/mbconfig/internal/validate"
)

// Validate checks a decoded document against the embedded project schema.
// It returns nil or a validate.ValidationError listing every violation, sorted by pointer.
func Validate(doc any) error {
	s, err := schema.Load()
	if err != nil {
		return err
	}

	err = s.VisitJSON(doc, openapi3.MultiErrors())
	if err == nil {
		return nil
	}

	v := validate.New()
	collect(v, err)
	v.Sort()
	return v.Err()
}

func collect(v *validate.Validator, err error) {
	switch e := err.(type) {
	case openapi3.MultiError:
		for _, inner := range e {
			collect(v, inner)
		}
	case *openapi3.SchemaError:
		v.Add(violation(e))
	default:
		v.AddError("", err.Error(), nil)
	}
}

var propertyReason = regexp.MustCompile(`^property ("(?:[^"\\]|\\.)*") is (missing|unsupported)$`)

func violation(se *openapi3.SchemaError) validate.Error {
	path := se.JSONPointer()
	rule := ruleOf(se.SchemaField)
	value := se.Value

	// Key-level violations point at the key itself.
	if m := propertyReason.FindStringSubmatch(se.Reason); m != nil {
		if key, err := strconv.Unquote(m[1]); err == nil {
			if len(path) == 0 || path[len(path)-1] != key {
				path = append(path, key)
			}
		}
		if m[2] == "unsupported" {
			rule = "additionalProperties"
		}
		value = nil
	}

	msg := se.Reason
	if t, ok := value.(time.Time); ok {
		// TOML dates and times reach here as unhandled values.
		msg = fmt.Sprintf("value must be of type %s, got a date/time", strings.Join(se.Schema.Type.Slice(), " or "))
		value = t.Format(time.RFC3339Nano)
	}

	return validate.Error{
		Field:   Pointer(path...),
		Rule:    rule,
		Value:   scalar(value),
		Message: msg,
	}
}

func ruleOf(schemaField string) string {
	switch schemaField {
	case "properties":
		return "additionalProperties"
	case "nullable":
		return "type"
	default:
		return schemaField
	}
}

// scalar keeps reported values small: containers are dropped.
func scalar(v any) any {
	switch v.(type) {
	case map[string]any, []any:
		return nil
	default:
		return v
	}
}

// Pointer builds a JSON pointer from unescaped reference tokens.
func Pointer(tokens ...string) string {
	if len(tokens) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range tokens {
		b.WriteByte('/')
		b.WriteString(strings.NewReplacer("~", "~0", "/", "~1").Replace(t))
	}
	return b.String()
}

// SplitPointer returns the unescaped reference tokens of a JSON pointer.
func SplitPointer(pointer string) []string {
	if pointer == "" || pointer == "/" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	for i, p := range parts {
		parts[i] = strings.NewReplacer("~1", "/", "~0", "~").Replace(p)
	}
	return parts
}
