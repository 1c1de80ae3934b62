package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemHandler_Health(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("all checks pass", func(t *testing.T) {
		r, _ := testRouter("")
		h := NewSystemHandler("test", map[string]HealthCheck{"database": ok, "redis": ok})
		r.GET("/health", h.Health)

		w := do(r, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, w.Code)
		resp := decode(t, w)
		assert.True(t, resp.Success)
		assert.Equal(t, "ok", resp.Data.(map[string]any)["status"])
	})

	t.Run("one check fails", func(t *testing.T) {
		r, _ := testRouter("")
		h := NewSystemHandler("test", map[string]HealthCheck{"database": ok, "redis": down})
		r.GET("/health", h.Health)

		w := do(r, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		data := decode(t, w).Data.(map[string]any)
		assert.Equal(t, "degraded", data["status"])
		checks := data["checks"].(map[string]any)
		assert.Equal(t, "ok", checks["database"])
		assert.Equal(t, "connection refused", checks["redis"])
	})

	t.Run("no checks", func(t *testing.T) {
		r, _ := testRouter("")
		r.GET("/health", NewSystemHandler("test", nil).Health)
		assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "").Code)
	})
}

func TestSystemHandler_Info(t *testing.T) {
	r, _ := testRouter("")
	r.GET("/info", NewSystemHandler("1.4.0", nil).GetSystemInfo)
	w := do(r, http.MethodGet, "/info", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1.4.0", decode(t, w).Data.(map[string]any)["version"])
}
