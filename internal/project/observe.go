// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package project

import (
	"errors"
	"time"

	"github.com/ManuGH/mbconfig/internal/metrics"
	"github.com/ManuGH/mbconfig/internal/validate"
)

// Violations returns the schema violations carried by err, or nil.
func Violations(err error) []validate.Error {
	var ve validate.ValidationError
	if errors.As(err, &ve) {
		return ve.Errors()
	}
	return nil
}

// Observe records the outcome of one validation started at start.
func Observe(source string, start time.Time, err error) {
	result := "valid"
	var rules []string
	if err != nil {
		result = "malformed"
		if vs := Violations(err); vs != nil {
			result = "invalid"
			rules = make([]string, len(vs))
			for i, v := range vs {
				rules[i] = v.Rule
			}
		}
	}
	metrics.ObserveValidation(source, result, rules, time.Since(start))
}
