// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package project

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLint_CleanConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "valid-full.yaml"))
	require.NoError(t, err)
	assert.Empty(t, Lint(cfg))
}

func TestLint_Findings(t *testing.T) {
	cfg := &Config{
		Schema: "mindbender-core:config-0.9",
		Template: map[string]string{
			"work":   "{root}/work",
			"broken": "{root/work",
		},
		Tasks: []Task{
			{Name: "modeling"},
			{Name: "rigging"},
			{Name: "modeling"},
		},
		Apps: []App{
			{Name: "  "},
		},
		Families: []Family{
			{Name: "mindbender.model"},
			{Name: "mindbender.model"},
		},
	}

	findings := Lint(cfg)

	type key struct{ field, rule string }
	got := map[key]bool{}
	for _, f := range findings {
		got[key{f.Field, f.Rule}] = true
	}

	assert.True(t, got[key{"/schema", "schemaID"}], "findings: %v", findings)
	assert.True(t, got[key{"/template/broken", "template"}], "findings: %v", findings)
	assert.True(t, got[key{"/tasks/2/name", "unique"}], "findings: %v", findings)
	assert.True(t, got[key{"/apps/0/name", "notEmpty"}], "findings: %v", findings)
	assert.True(t, got[key{"/families/1/name", "unique"}], "findings: %v", findings)
	assert.False(t, got[key{"/template/work", "template"}])
	assert.Len(t, findings, 5)

	for i := 1; i < len(findings); i++ {
		assert.LessOrEqual(t, findings[i-1].Field, findings[i].Field, "findings must be sorted")
	}
}

func TestLint_DuplicateMessageNamesFirstDefinition(t *testing.T) {
	cfg := &Config{
		Template: map[string]string{},
		Tasks:    []Task{{Name: "a"}, {Name: "b"}, {Name: "a"}},
		Apps:     []App{},
	}

	findings := Lint(cfg)
	require.Len(t, findings, 1)
	assert.Equal(t, "/tasks/2/name", findings[0].Field)
	assert.Contains(t, findings[0].Message, "/tasks/0/name")
}

func TestLint_SameNameAcrossSectionsIsAllowed(t *testing.T) {
	cfg := &Config{
		Template: map[string]string{},
		Tasks:    []Task{{Name: "maya"}},
		Apps:     []App{{Name: "maya"}},
		Families: []Family{{Name: "maya"}},
	}
	assert.Empty(t, Lint(cfg))
}

func TestLint_MatchingSchemaID(t *testing.T) {
	cfg := &Config{Schema: "mindbender-core:config-1.0", Template: map[string]string{}}
	assert.Empty(t, Lint(cfg))
}
