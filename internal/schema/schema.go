// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package schema provides the embedded project configuration JSON schema.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

// ID identifies the schema version written into the "schema" field of a project file.
const ID = "mindbender-core:config-1.0"

//go:embed project.schema.json
var projectSchemaJSON []byte

var (
	loadOnce sync.Once
	compiled *openapi3.Schema
	loadErr  error
)

// JSON returns the embedded schema document as shipped.
func JSON() []byte {
	out := make([]byte, len(projectSchemaJSON))
	copy(out, projectSchemaJSON)
	return out
}

// Load returns the compiled schema. The result is shared and must not be mutated.
func Load() (*openapi3.Schema, error) {
	loadOnce.Do(func() {
		var s openapi3.Schema
		if err := json.Unmarshal(projectSchemaJSON, &s); err != nil {
			loadErr = fmt.Errorf("parse embedded schema: %w", err)
			return
		}
		compiled = &s
	})
	return compiled, loadErr
}
