// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by spans.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"
	HTTPRequestIDKey  = "http.request_id"

	ProjectFormatKey     = "project.format"
	ProjectValidKey      = "project.valid"
	ProjectViolationsKey = "project.violations"
	ProjectWarningsKey   = "project.warnings"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// ValidationAttributes describes the outcome of one document validation.
func ValidationAttributes(format string, violations, warnings int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ProjectFormatKey, format),
		attribute.Bool(ProjectValidKey, violations == 0),
		attribute.Int(ProjectViolationsKey, violations),
		attribute.Int(ProjectWarningsKey, warnings),
	}
}
