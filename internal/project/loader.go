// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package project

import (
	"fmt"
	"os"
	"path/filepath"
)

// Source is a project file read from disk, kept around for error positions.
type Source struct {
	Path   string
	Format Format
	Data   []byte
}

// ReadSource reads path and detects its format from the extension.
func ReadSource(path string) (*Source, error) {
	path = filepath.Clean(path)

	f, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- project file paths are provided by the operator via CLI
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return &Source{Path: path, Format: f, Data: data}, nil
}

// Parse decodes and validates the source.
func (s *Source) Parse() (*Config, error) {
	return Parse(s.Data, s.Format)
}

// Locate maps a violation pointer to its position in the source.
func (s *Source) Locate(pointer string) (Position, bool) {
	return Locate(s.Data, s.Format, pointer)
}

// Load reads, validates and decodes the project file at path.
// Order: detect format -> decode -> schema validation -> typed conversion.
func Load(path string) (*Config, error) {
	src, err := ReadSource(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	cfg, err := src.Parse()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src.Path, err)
	}
	return cfg, nil
}

// Parse decodes data in format f, validates it and returns the typed configuration.
func Parse(data []byte, f Format) (*Config, error) {
	doc, err := Decode(data, f)
	if err != nil {
		return nil, err
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}
	return fromTree(doc)
}

// fromTree converts an already validated tree. Decoded values are kept as they
// are, so extra keys and copy survive a later Encode unchanged.
func fromTree(doc any) (*Config, error) {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decode validated document: top level is %T", doc)
	}

	var cfg Config
	cfg.Schema, _ = root["schema"].(string)
	if tmpl, ok := root["template"].(map[string]any); ok {
		cfg.Template = make(map[string]string, len(tmpl))
		for k, v := range tmpl {
			cfg.Template[k], _ = v.(string)
		}
	}
	cfg.Tasks = entriesOf(root["tasks"])
	cfg.Apps = entriesOf(root["apps"])
	if items, ok := root["families"].([]any); ok {
		cfg.Families = make([]Family, 0, len(items))
		for _, item := range items {
			m, _ := item.(map[string]any)
			var f Family
			f.Extra = knownFields(m, map[string]*string{
				"name":  &f.Name,
				"icon":  &f.Icon,
				"label": &f.Label,
			})
			cfg.Families = append(cfg.Families, f)
		}
	}
	cfg.Copy, _ = root["copy"].(map[string]any)
	cfg.withDefaults()
	return &cfg, nil
}

func entriesOf(v any) []Entry {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Entry, 0, len(items))
	for _, item := range items {
		m, _ := item.(map[string]any)
		var e Entry
		e.Extra = knownFields(m, map[string]*string{
			"name":  &e.Name,
			"icon":  &e.Icon,
			"group": &e.Group,
			"label": &e.Label,
		})
		out = append(out, e)
	}
	return out
}

// knownFields stores the string fields named in known and returns the rest, or nil.
func knownFields(m map[string]any, known map[string]*string) map[string]any {
	var extra map[string]any
	for k, v := range m {
		if dst, ok := known[k]; ok {
			*dst, _ = v.(string)
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[k] = v
	}
	return extra
}
