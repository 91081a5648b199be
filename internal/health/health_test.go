// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/mbconfig/internal/schema"
)

type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string { return m.name }

func (m *mockChecker) Check(context.Context) CheckResult {
	return CheckResult{Status: m.status}
}

func TestNewManager(t *testing.T) {
	m := NewManager("v1.2.3")
	assert.NotNil(t, m)
	assert.Equal(t, "v1.2.3", m.version)
	assert.Empty(t, m.checkers)
}

func TestManager_Health_NoCheckers(t *testing.T) {
	m := NewManager("v1.0.0")

	resp := m.Health(context.Background(), true)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, schema.ID, resp.Schema)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.Nil(t, resp.Checks)
}

func TestManager_Health_WithCheckers(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "healthy", status: StatusHealthy})
	m.RegisterChecker(&mockChecker{name: "degraded", status: StatusDegraded})

	// Non-verbose: no checks included
	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Nil(t, resp.Checks)

	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
	assert.Equal(t, StatusDegraded, resp.Checks["degraded"].Status)
}

func TestManager_Ready(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []Status
		wantReady bool
		want      Status
	}{
		{"no checkers", nil, true, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, true, StatusHealthy},
		{"degraded is ready", []Status{StatusHealthy, StatusDegraded}, true, StatusDegraded},
		{"unhealthy wins", []Status{StatusUnhealthy, StatusDegraded}, false, StatusUnhealthy},
		{"unhealthy before degraded", []Status{StatusDegraded, StatusUnhealthy}, false, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("test")
			for i, s := range tt.statuses {
				m.RegisterChecker(&mockChecker{name: string(rune('a' + i)), status: s})
			}
			resp := m.Ready(context.Background())
			assert.Equal(t, tt.wantReady, resp.Ready)
			assert.Equal(t, tt.want, resp.Status)
			assert.False(t, resp.Timestamp.IsZero())
		})
	}
}

func TestServeHealth(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "broken", status: StatusUnhealthy})

	rr := httptest.NewRecorder()
	m.ServeHealth(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, StatusHealthy, resp.Status)

	rr = httptest.NewRecorder()
	m.ServeHealth(rr, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))
	require.Equal(t, http.StatusOK, rr.Code, "liveness is always 200")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Contains(t, resp.Checks, "broken")
}

func TestServeReady(t *testing.T) {
	m := NewManager("v1.0.0")
	rr := httptest.NewRecorder()
	m.ServeReady(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	m.RegisterChecker(&mockChecker{name: "broken", status: StatusUnhealthy})
	rr = httptest.NewRecorder()
	m.ServeReady(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Ready)
}

func TestSchemaChecker(t *testing.T) {
	c := SchemaChecker{}
	assert.Equal(t, "schema", c.Name())
	result := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, result.Status)
	assert.Equal(t, schema.ID, result.Message)
}

func TestFileChecker(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "project.yaml")
	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(file, []byte("template: {}\n"), 0o600))
	require.NoError(t, os.WriteFile(empty, nil, 0o600))

	tests := []struct {
		name string
		path string
		want Status
	}{
		{"not configured", "", StatusHealthy},
		{"exists", file, StatusHealthy},
		{"empty", empty, StatusDegraded},
		{"missing", filepath.Join(dir, "missing.yaml"), StatusUnhealthy},
		{"directory", dir, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewFileChecker("project_file", tt.path)
			assert.Equal(t, "project_file", c.Name())
			assert.Equal(t, tt.want, c.Check(context.Background()).Status)
		})
	}
}

func TestReloadChecker(t *testing.T) {
	var (
		at  time.Time
		err error
	)
	c := NewReloadChecker(func() (time.Time, error) { return at, err })
	assert.Equal(t, "project_reload", c.Name())

	result := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, result.Status)
	assert.Equal(t, "initial configuration loaded", result.Message)

	at = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	result = c.Check(context.Background())
	assert.Equal(t, StatusHealthy, result.Status)
	assert.Contains(t, result.Message, "2026-01-02T03:04:05Z")

	err = errors.New("validation failed for /apps: property \"apps\" is missing")
	result = c.Check(context.Background())
	assert.Equal(t, StatusDegraded, result.Status)
	assert.Contains(t, result.Error, "/apps")
}
