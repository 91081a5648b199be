// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package project

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/oasdiff/yaml"
	yamlv3 "gopkg.in/yaml.v3"
)

// Decode decodes data into a generic JSON tree: map[string]any, []any,
// json.Number, string, bool or nil. Numbers keep their literal text so that
// re-encoding never rounds them. YAML is normalized through JSON. TOML keeps
// its date and time values as time.Time, which only unconstrained positions
// accept.
func Decode(data []byte, f Format) (any, error) {
	switch f {
	case FormatJSON:
		return decodeJSON(data)
	case FormatYAML:
		return decodeYAML(data)
	case FormatTOML:
		return decodeTOML(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
	}
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDocument
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if rest := bytes.TrimSpace(data[dec.InputOffset():]); len(rest) > 0 {
		return nil, ErrMultipleDocuments
	}
	return doc, nil
}

func decodeYAML(data []byte) (any, error) {
	// Strict: exactly one document.
	dec := yamlv3.NewDecoder(bytes.NewReader(data))
	var node yamlv3.Node
	if err := dec.Decode(&node); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDocument
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	var extra yamlv3.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return nil, ErrMultipleDocuments
	}

	j, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return decodeJSON(j)
}

func decodeTOML(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDocument
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return fromTOML(raw), nil
}

// fromTOML maps decoded TOML values onto the JSON value model.
func fromTOML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = fromTOML(val)
		}
		return t
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = fromTOML(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = fromTOML(val)
		}
		return t
	case int64:
		return json.Number(strconv.FormatInt(t, 10))
	case float64:
		return floatNumber(t)
	case time.Time:
		return t
	default:
		return v
	}
}

// floatNumber keeps a float recognizable as one: 2.0 stays "2.0".
// NaN and infinities have no JSON form and stay float64.
func floatNumber(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return json.Number(s)
}
