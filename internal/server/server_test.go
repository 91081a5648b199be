// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/goleak"

	"github.com/ManuGH/mbconfig/internal/project"
	"github.com/ManuGH/mbconfig/internal/schema"
	"github.com/ManuGH/mbconfig/internal/telemetry"
)

const validDoc = `{"schema": "mindbender-core:config-1.0", "template": {"work": "{root}/work"}, "tasks": [{"name": "modeling"}], "apps": []}`

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	cfg.Logger = zerolog.Nop()
	return New(cfg)
}

func do(t *testing.T, h http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "body: %s", rr.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, Config{})
	rr := do(t, s.Handler(), http.MethodGet, "/healthz", "", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, map[string]any{"status": "healthy", "schema": schema.ID}, decodeBody(t, rr))
}

func TestHealthz_VerboseWithVersion(t *testing.T) {
	s := newTestServer(t, Config{Version: "v1.2.3"})
	rr := do(t, s.Handler(), http.MethodGet, "/healthz?verbose=true", "", "")

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "v1.2.3", body["version"])
	assert.Contains(t, body["checks"], "schema")
}

func TestReadyz(t *testing.T) {
	s := newTestServer(t, Config{})
	rr := do(t, s.Handler(), http.MethodGet, "/readyz", "", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decodeBody(t, rr)["ready"])
}

func newHolder(t *testing.T) (*project.Holder, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "project.yaml")
	require.NoError(t, os.WriteFile(path, []byte("template:\n  work: \"{root}/work\"\ntasks:\n  - name: modeling\napps: []\n"), 0o600))
	h, err := project.NewHolder(path)
	require.NoError(t, err)
	return h, path
}

func TestProject(t *testing.T) {
	h, _ := newHolder(t)
	s := newTestServer(t, Config{Project: h})

	rr := do(t, s.Handler(), http.MethodGet, "/v1/project", "", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	got, err := project.Parse(rr.Body.Bytes(), project.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, h.Get(), got)

	rr = do(t, s.Handler(), http.MethodGet, "/v1/project?format=toml", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/toml", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "[[tasks]]")

	rr = do(t, s.Handler(), http.MethodGet, "/v1/project?format=ini", "", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProject_NotConfigured(t *testing.T) {
	s := newTestServer(t, Config{})
	rr := do(t, s.Handler(), http.MethodGet, "/v1/project", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestReadyz_ProjectReloadFailureIsDegraded(t *testing.T) {
	h, path := newHolder(t)
	s := newTestServer(t, Config{Project: h})

	require.NoError(t, os.WriteFile(path, []byte("tasks: []\n"), 0o600))
	require.Error(t, h.Reload(context.Background()))

	rr := do(t, s.Handler(), http.MethodGet, "/readyz", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, true, body["ready"])

	require.NoError(t, os.Remove(path))
	rr = do(t, s.Handler(), http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestSchema(t *testing.T) {
	s := newTestServer(t, Config{})
	rr := do(t, s.Handler(), http.MethodGet, "/v1/schema", "", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/schema+json", rr.Header().Get("Content-Type"))
	assert.Equal(t, schema.JSON(), rr.Body.Bytes())
}

func TestValidate_Valid(t *testing.T) {
	s := newTestServer(t, Config{})
	rr := do(t, s.Handler(), http.MethodPost, "/v1/validate", "application/json", validDoc)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, []any{}, body["warnings"])
	assert.NotContains(t, body, "violations")
}

func TestValidate_ValidWithWarnings(t *testing.T) {
	s := newTestServer(t, Config{})
	doc := `{"template": {}, "tasks": [{"name": "a"}, {"name": "a"}], "apps": []}`
	rr := do(t, s.Handler(), http.MethodPost, "/v1/validate", "", doc)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp ValidateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)
	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, "/tasks/1/name", resp.Warnings[0].Field)
	assert.Equal(t, "unique", resp.Warnings[0].Rule)
}

func TestValidate_Invalid(t *testing.T) {
	s := newTestServer(t, Config{})
	doc := "template: {}\ntasks:\n  - label: Model\napps: []\nfoo: bar\n"
	rr := do(t, s.Handler(), http.MethodPost, "/v1/validate", "application/yaml", doc)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
	var resp ValidateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Valid)
	require.Len(t, resp.Violations, 2)

	assert.Equal(t, "/foo", resp.Violations[0].Field)
	assert.Equal(t, "additionalProperties", resp.Violations[0].Rule)
	assert.Equal(t, 5, resp.Violations[0].Line)
	assert.Equal(t, 1, resp.Violations[0].Column)

	assert.Equal(t, "/tasks/0/name", resp.Violations[1].Field)
	assert.Equal(t, "required", resp.Violations[1].Rule)
	assert.Equal(t, 3, resp.Violations[1].Line)
}

func TestValidate_FormatSelection(t *testing.T) {
	toml := "tasks = []\napps = []\n\n[template]\nwork = \"{root}\"\n"
	yaml := "template: {}\ntasks: []\napps: []\n"

	tests := []struct {
		name        string
		target      string
		contentType string
		body        string
	}{
		{"query toml", "/v1/validate?format=toml", "application/json", toml},
		{"query yml", "/v1/validate?format=yml", "", yaml},
		{"content type toml", "/v1/validate", "application/toml", toml},
		{"content type x-yaml", "/v1/validate", "application/x-yaml; charset=utf-8", yaml},
		{"content type text/yaml", "/v1/validate", "text/yaml", yaml},
		{"default json", "/v1/validate", "", validDoc},
	}

	s := newTestServer(t, Config{RateLimit: 100})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, s.Handler(), http.MethodPost, tt.target, tt.contentType, tt.body)
			assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		})
	}
}

func TestValidate_BadRequest(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		contentType string
		body        string
	}{
		{"unknown query format", "/v1/validate?format=ini", "", validDoc},
		{"unknown content type", "/v1/validate", "application/xml", "<x/>"},
		{"malformed json", "/v1/validate", "application/json", `{"template":`},
		{"empty body", "/v1/validate", "application/json", ""},
		{"multi-document yaml", "/v1/validate", "application/yaml", "a: 1\n---\nb: 2\n"},
	}

	s := newTestServer(t, Config{RateLimit: 100})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, s.Handler(), http.MethodPost, tt.target, tt.contentType, tt.body)
			require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			assert.NotEmpty(t, decodeBody(t, rr)["error"])
		})
	}
}

func TestValidate_BodyTooLarge(t *testing.T) {
	s := newTestServer(t, Config{MaxBodyBytes: 16})
	rr := do(t, s.Handler(), http.MethodPost, "/v1/validate", "application/json", validDoc)

	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Contains(t, decodeBody(t, rr)["error"], "16 bytes")
}

func TestValidate_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t, Config{})
	rr := do(t, s.Handler(), http.MethodGet, "/v1/validate", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = do(t, s.Handler(), http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, Config{RateLimit: 2, RateWindow: time.Minute})

	for i := 0; i < 2; i++ {
		rr := do(t, s.Handler(), http.MethodGet, "/v1/schema", "", "")
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr := do(t, s.Handler(), http.MethodGet, "/v1/schema", "", "")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decodeBody(t, rr)["error"])

	// Health checks are not rate limited.
	rr = do(t, s.Handler(), http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, Config{})

	rr := do(t, s.Handler(), http.MethodGet, "/healthz", "", "")
	assert.Len(t, rr.Header().Get(HeaderRequestID), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get(HeaderRequestID))
}

func TestRecoverer(t *testing.T) {
	h := requestID(recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rr := do(t, h, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "internal server error", body["error"])
	assert.Equal(t, rr.Header().Get(HeaderRequestID), body["requestId"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, Config{RateLimit: 100})
	do(t, s.Handler(), http.MethodPost, "/v1/validate", "application/json", validDoc)

	rr := do(t, s.Handler(), http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	out := rr.Body.String()
	assert.Contains(t, out, `mbconfig_validations_total{result="valid",source="http"}`)
	assert.Contains(t, out, `mbconfig_http_request_duration_seconds_count{method="POST",path="/v1/validate",status="200"}`)
}

func TestServer_StartShutdown_NoGoroutineLeak(t *testing.T) {
	s := newTestServer(t, Config{ListenAddr: "127.0.0.1:0"})
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	require.Eventually(t, func() bool { return s.Addr() != nil }, 2*time.Second, 10*time.Millisecond)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + s.Addr().String() + "/healthz")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}

func TestServer_StartFailsOnBadAddress(t *testing.T) {
	s := newTestServer(t, Config{ListenAddr: "256.0.0.1:99999"})
	assert.Error(t, s.Start())
}

func TestTracing_RecordsRequestSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	s := newTestServer(t, Config{})
	doc := "template: {}\ntasks:\n  - label: Model\napps: []\n"
	rr := do(t, s.Handler(), http.MethodPost, "/v1/validate?format=yaml", "", doc)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	do(t, s.Handler(), http.MethodGet, "/healthz", "", "")

	spans := rec.Ended()
	require.Len(t, spans, 2)

	validateSpan := spans[0]
	assert.Equal(t, "POST /v1/validate", validateSpan.Name())
	assert.Equal(t, trace.SpanKindServer, validateSpan.SpanKind())
	assert.Equal(t, codes.Ok, validateSpan.Status().Code)

	attrs := attribute.NewSet(validateSpan.Attributes()...)
	status, _ := attrs.Value(telemetry.HTTPStatusCodeKey)
	assert.Equal(t, int64(http.StatusUnprocessableEntity), status.AsInt64())
	url, _ := attrs.Value(telemetry.HTTPURLKey)
	assert.Equal(t, "/v1/validate?", url.AsString(), "query values stay out of spans")
	valid, _ := attrs.Value(telemetry.ProjectValidKey)
	assert.False(t, valid.AsBool())
	violations, _ := attrs.Value(telemetry.ProjectViolationsKey)
	assert.Equal(t, int64(1), violations.AsInt64())
	reqID, _ := attrs.Value(telemetry.HTTPRequestIDKey)
	assert.Equal(t, rr.Header().Get(HeaderRequestID), reqID.AsString())

	assert.Equal(t, "GET /healthz", spans[1].Name())
}
