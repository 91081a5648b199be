// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package project

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Encode writes cfg to w in format f. Extra keys of tasks, apps and families are
// written next to the known ones.
func Encode(w io.Writer, cfg *Config, f Format) error {
	c := *cfg
	c.withDefaults()

	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(&c)
	case FormatYAML:
		y := yamlConfig(c)
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&y); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(tomlValue(c.tree())); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
	}
}

// yamlConfig returns a copy of c whose free-form values encode as YAML
// scalars of their own type.
func yamlConfig(c Config) Config {
	entries := func(in []Entry) []Entry {
		out := make([]Entry, len(in))
		for i, e := range in {
			e.Extra = yamlMap(e.Extra)
			out[i] = e
		}
		return out
	}
	c.Tasks = entries(c.Tasks)
	c.Apps = entries(c.Apps)
	if c.Families != nil {
		fams := make([]Family, len(c.Families))
		for i, f := range c.Families {
			f.Extra = yamlMap(f.Extra)
			fams[i] = f
		}
		c.Families = fams
	}
	c.Copy = yamlMap(c.Copy)
	return c
}

func yamlMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = yamlValue(v)
	}
	return out
}

// yamlValue turns json.Number into a plain !!int or !!float scalar; yaml.v3
// would otherwise quote it as a string.
func yamlValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return yamlMap(t)
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = yamlValue(val)
		}
		return out
	case json.Number:
		tag := "!!int"
		if strings.ContainsAny(t.String(), ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: t.String()}
	default:
		return v
	}
}

// tree returns the generic representation of c with known keys next to extras.
func (c *Config) tree() map[string]any {
	out := map[string]any{
		"template": stringMap(c.Template),
		"tasks":    entryTables(c.Tasks),
		"apps":     entryTables(c.Apps),
	}
	if c.Schema != "" {
		out["schema"] = c.Schema
	}
	if len(c.Families) > 0 {
		fams := make([]map[string]any, len(c.Families))
		for i, f := range c.Families {
			fams[i] = table(f.Extra, [][2]string{{"name", f.Name}, {"icon", f.Icon}, {"label", f.Label}})
		}
		out["families"] = fams
	}
	if len(c.Copy) > 0 {
		out["copy"] = c.Copy
	}
	return out
}

func stringMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func entryTables(entries []Entry) []map[string]any {
	out := make([]map[string]any, len(entries))
	for i, e := range entries {
		out[i] = table(e.Extra, [][2]string{{"name", e.Name}, {"icon", e.Icon}, {"group", e.Group}, {"label", e.Label}})
	}
	return out
}

// table merges extra with known; empty known values other than the first are omitted.
func table(extra map[string]any, known [][2]string) map[string]any {
	out := make(map[string]any, len(extra)+len(known))
	for k, v := range extra {
		out[k] = v
	}
	for i, kv := range known {
		if i > 0 && kv[1] == "" {
			delete(out, kv[0])
			continue
		}
		out[kv[0]] = kv[1]
	}
	return out
}

// tomlValue drops nulls, which TOML cannot hold. json.Number and time.Time
// are written natively by the encoder.
func tomlValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if val == nil {
				continue
			}
			out[k] = tomlValue(val)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, val := range t {
			out[i] = tomlValue(val).(map[string]any)
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, val := range t {
			if val == nil {
				continue
			}
			out = append(out, tomlValue(val))
		}
		return out
	default:
		return v
	}
}
