package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	logisticsapp "github.com/distribuidora/backend/internal/application/logistics"
	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteHandler_CachedPath(t *testing.T) {
	paths := cache.NewInMemoryRoutePathCache()
	t.Cleanup(func() { _ = paths.Close() })
	svc := logisticsapp.NewRouteService(nil, nil, paths, nil, nil, nil)
	h := NewRouteHandler(svc)

	r, _ := testRouter(identity.RoleDriver)
	r.GET("/routes/paths", h.CachedPath)

	a, b := uuid.New(), uuid.New()
	path := json.RawMessage(`[{"lat":-34.6,"lng":-58.4}]`)
	require.NoError(t, paths.Put(t.Context(), logisticsapp.PathKey([]uuid.UUID{a, b}), path, time.Hour))

	// stop order does not matter
	w := do(r, http.MethodGet, "/routes/paths?customer_ids="+b.String()+","+a.String(), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w).Data.(map[string]any)
	assert.NotEmpty(t, data["key"])

	w = do(r, http.MethodGet, "/routes/paths?customer_ids="+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/routes/paths?customer_ids=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/routes/paths", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouteHandler_SimilarValidation(t *testing.T) {
	h := NewRouteHandler(nil)
	r, _ := testRouter(identity.RoleSalesRep)
	r.POST("/routes/similar", h.Similar)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/routes/similar", `{"customer_ids":[]}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/routes/similar", `{"customer_ids":["`+uuid.NewString()+`"],"threshold":1.5}`).Code)
}
