package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "decisionflow/pkg/errors"
)

func TestLiveness(t *testing.T) {
	h := NewHandler("1.0.0")
	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "1.0.0", resp["version"])
}

func TestReadiness_AllUp(t *testing.T) {
	h := NewHandler("1.0.0",
		Check{Name: "redis", Fn: func(context.Context) error { return nil }},
		Check{Name: "downstream", Fn: func(context.Context) error { return nil }},
	)
	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadiness_DependencyDown(t *testing.T) {
	h := NewHandler("1.0.0",
		Check{Name: "redis", Fn: func(context.Context) error { return nil }},
		Check{Name: "downstream", Fn: func(context.Context) error {
			return pkgerrors.Wrap(pkgerrors.ErrAgentUnreachable, "get_info agent")
		}},
	)
	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp struct {
		Status string `json:"status"`
		Checks map[string]struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "up", resp.Checks["redis"].Status)
	assert.Equal(t, "down", resp.Checks["downstream"].Status)
	assert.Contains(t, resp.Checks["downstream"].Error, "get_info")
}
