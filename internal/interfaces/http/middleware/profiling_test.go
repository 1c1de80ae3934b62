package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestProfiling_LabelsRequestContext(t *testing.T) {
	var route, method string
	var labelled bool

	r := gin.New()
	r.Use(Profiling(true, "/health"))
	handler := func(c *gin.Context) {
		route, labelled = pprof.Label(c.Request.Context(), "route")
		method, _ = pprof.Label(c.Request.Context(), "method")
		c.Status(http.StatusOK)
	}
	r.GET("/orders/:id", handler)
	r.GET("/health", handler)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/7", nil))
	assert.True(t, labelled)
	assert.Equal(t, "/orders/:id", route)
	assert.Equal(t, http.MethodGet, method)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.False(t, labelled)
}

func TestProfiling_Disabled(t *testing.T) {
	r := gin.New()
	r.Use(Profiling(false))
	r.GET("/x", func(c *gin.Context) {
		_, ok := pprof.Label(c.Request.Context(), "route")
		assert.False(t, ok)
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
