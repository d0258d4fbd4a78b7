package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/userhub/engine/internal/api/types"
)

func TestHealthEndpoints(t *testing.T) {
	h := NewHealthHandler(map[string]Check{
		"database": func(context.Context) error { return nil },
	})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	h.Liveness(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rr = httptest.NewRecorder()
	h.Readiness(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var body types.HealthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, "ok", body.Checks["database"])
}

func TestReadinessReportsFailingDependency(t *testing.T) {
	h := NewHealthHandler(map[string]Check{
		"database": func(context.Context) error { return nil },
		"cache":    func(context.Context) error { return errors.New("connection refused") },
	})
	rr := httptest.NewRecorder()
	h.Readiness(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var body types.HealthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, "connection refused", body.Checks["cache"])
}
