// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package project

import "errors"

var (
	// ErrUnsupportedFormat is returned for file extensions or format names other than JSON, YAML and TOML.
	ErrUnsupportedFormat = errors.New("unsupported config format")
	// ErrMalformed classifies documents that cannot be decoded at all.
	ErrMalformed = errors.New("malformed document")
	// ErrEmptyDocument is returned when the input holds no document.
	ErrEmptyDocument = errors.New("empty document")
	// ErrMultipleDocuments is returned for multi-document YAML or trailing JSON content.
	ErrMultipleDocuments = errors.New("multiple documents or trailing content")

	// ErrUnknownTemplate is returned by Config.Format for a template name that is not defined.
	ErrUnknownTemplate = errors.New("unknown template")
	// ErrMissingField is returned when a template placeholder has no value.
	ErrMissingField = errors.New("missing template field")
	// ErrMalformedTemplate is returned for unbalanced braces or empty placeholders.
	ErrMalformedTemplate = errors.New("malformed template")
)
