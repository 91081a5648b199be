// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package project loads and validates project configuration files.
//
// A project file is decoded into a generic JSON tree, checked against the
// embedded schema (see internal/schema) and only then converted into a Config.
// Schema violations are reported as a validate.ValidationError whose entries
// carry the JSON pointer of the offending value.
package project
