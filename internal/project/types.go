// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Config is a validated project configuration.
// Values returned by Load, Parse and Holder.Get are shared and must be treated as read-only.
type Config struct {
	Schema   string            `json:"schema,omitempty" yaml:"schema,omitempty"`
	Template map[string]string `json:"template" yaml:"template"`
	Tasks    []Task            `json:"tasks" yaml:"tasks"`
	Apps     []App             `json:"apps" yaml:"apps"`
	Families []Family          `json:"families,omitempty" yaml:"families,omitempty"`
	// Copy is carried through untouched; its structure is not constrained.
	Copy map[string]any `json:"copy,omitempty" yaml:"copy,omitempty"`
}

// Entry is a named task or application with optional display metadata.
// Keys other than the known ones are kept in Extra.
type Entry struct {
	Name  string         `json:"name" yaml:"name"`
	Icon  string         `json:"icon,omitempty" yaml:"icon,omitempty"`
	Group string         `json:"group,omitempty" yaml:"group,omitempty"`
	Label string         `json:"label,omitempty" yaml:"label,omitempty"`
	Extra map[string]any `json:"-" yaml:",inline"`
}

// Task and App share the same shape.
type (
	Task = Entry
	App  = Entry
)

// Family is a named family of published content.
type Family struct {
	Name  string         `json:"name" yaml:"name"`
	Icon  string         `json:"icon,omitempty" yaml:"icon,omitempty"`
	Label string         `json:"label,omitempty" yaml:"label,omitempty"`
	Extra map[string]any `json:"-" yaml:",inline"`
}

// Task returns the task called name.
func (c *Config) Task(name string) (Task, bool) {
	return findEntry(c.Tasks, name)
}

// App returns the application called name.
func (c *Config) App(name string) (App, bool) {
	return findEntry(c.Apps, name)
}

// Family returns the family called name.
func (c *Config) Family(name string) (Family, bool) {
	for _, f := range c.Families {
		if f.Name == name {
			return f, true
		}
	}
	return Family{}, false
}

func findEntry(entries []Entry, name string) (Entry, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// withDefaults makes the required collections non-nil.
func (c *Config) withDefaults() {
	if c.Template == nil {
		c.Template = map[string]string{}
	}
	if c.Tasks == nil {
		c.Tasks = []Task{}
	}
	if c.Apps == nil {
		c.Apps = []App{}
	}
}

// MarshalJSON writes the known keys first, then Extra in key order.
func (e Entry) MarshalJSON() ([]byte, error) {
	return marshalOrdered([][2]string{
		{"name", e.Name},
		{"icon", e.Icon},
		{"group", e.Group},
		{"label", e.Label},
	}, e.Extra)
}

// UnmarshalJSON splits the object into known string fields and Extra.
func (e *Entry) UnmarshalJSON(data []byte) error {
	raw, err := splitObject(data)
	if err != nil {
		return err
	}
	*e = Entry{}
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"name", &e.Name},
		{"icon", &e.Icon},
		{"group", &e.Group},
		{"label", &e.Label},
	} {
		if err := takeString(raw, f.key, f.dst); err != nil {
			return err
		}
	}
	e.Extra, err = extraOf(raw)
	return err
}

// MarshalJSON writes the known keys first, then Extra in key order.
func (f Family) MarshalJSON() ([]byte, error) {
	return marshalOrdered([][2]string{
		{"name", f.Name},
		{"icon", f.Icon},
		{"label", f.Label},
	}, f.Extra)
}

// UnmarshalJSON splits the object into known string fields and Extra.
func (f *Family) UnmarshalJSON(data []byte) error {
	raw, err := splitObject(data)
	if err != nil {
		return err
	}
	*f = Family{}
	for _, fld := range []struct {
		key string
		dst *string
	}{
		{"name", &f.Name},
		{"icon", &f.Icon},
		{"label", &f.Label},
	} {
		if err := takeString(raw, fld.key, fld.dst); err != nil {
			return err
		}
	}
	f.Extra, err = extraOf(raw)
	return err
}

func splitObject(data []byte) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func takeString(raw map[string]json.RawMessage, key string, dst *string) error {
	msg, ok := raw[key]
	if !ok {
		return nil
	}
	delete(raw, key)
	if err := json.Unmarshal(msg, dst); err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	return nil
}

func extraOf(raw map[string]json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	extra := make(map[string]any, len(raw))
	for k, msg := range raw {
		dec := json.NewDecoder(bytes.NewReader(msg))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		extra[k] = v
	}
	return extra, nil
}

// marshalOrdered encodes known as an object prefix; empty values other than the first are omitted.
func marshalOrdered(known [][2]string, extra map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	n := 0
	write := func(k string, v any) error {
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		n++
		return nil
	}

	skip := make(map[string]struct{}, len(known))
	for i, kv := range known {
		skip[kv[0]] = struct{}{}
		if i > 0 && kv[1] == "" {
			continue
		}
		if err := write(kv[0], kv[1]); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		if _, ok := skip[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := write(k, extra[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
