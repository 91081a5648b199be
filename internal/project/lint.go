// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package project

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/ManuGH/mbconfig/internal/schema"
	"github.com/ManuGH/mbconfig/internal/validate"
)

// Lint reports findings on a valid configuration that the schema cannot express.
// None of them make the document invalid.
func Lint(cfg *Config) []validate.Error {
	v := validate.New()

	if cfg.Schema != "" && cfg.Schema != schema.ID {
		v.Add(validate.Error{
			Field:   "/schema",
			Rule:    "schemaID",
			Value:   cfg.Schema,
			Message: fmt.Sprintf("unknown schema %q (expected %q)", cfg.Schema, schema.ID),
		})
	}

	lintNames(v, "tasks", entryNames(cfg.Tasks))
	lintNames(v, "apps", entryNames(cfg.Apps))
	families := make([]string, len(cfg.Families))
	for i, f := range cfg.Families {
		families[i] = f.Name
	}
	lintNames(v, "families", families)

	keys := make([]string, 0, len(cfg.Template))
	for k := range cfg.Template {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := Placeholders(cfg.Template[k]); err != nil {
			v.Add(validate.Error{
				Field:   Pointer("template", k),
				Rule:    "template",
				Value:   cfg.Template[k],
				Message: err.Error(),
			})
		}
	}

	v.Sort()
	return v.Errors()
}

func entryNames(entries []Entry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

func lintNames(v *validate.Validator, section string, names []string) {
	field := func(i int) string { return Pointer(section, strconv.Itoa(i), "name") }
	for i, n := range names {
		v.NotEmpty(field(i), n)
	}
	v.Unique(names, field)
}
