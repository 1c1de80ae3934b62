package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTracing(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func withActor(actor identity.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(identity.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

func TestTracing_SpanNamesAndAttributes(t *testing.T) {
	recorder := setupTracing(t)
	actor := identity.Actor{UserID: uuid.New(), Username: "maria", Role: identity.RoleSalesRep}

	r := gin.New()
	r.Use(RequestID(), Tracing("distribuidora-test", "/health"), withActor(actor), SpanAttributes())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/orders/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, p := range []string{"/health", "/orders/42", "/boom"} {
		req := httptest.NewRequest(http.MethodGet, p, nil)
		req.Header.Set(RequestIDHeader, "req-"+p[1:])
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range spans {
		byName[s.Name()] = s
	}
	order, ok := byName["GET /orders/:id"]
	require.True(t, ok)
	attrs := map[string]string{}
	for _, kv := range order.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "req-orders/42", attrs["request_id"])
	assert.Equal(t, actor.UserID.String(), attrs["enduser.id"])
	assert.Equal(t, "sales_rep", attrs["enduser.role"])

	boom, ok := byName["GET /boom"]
	require.True(t, ok)
	assert.Equal(t, codes.Error, boom.Status().Code)
}

func TestSpanAttributes_NoSpan(t *testing.T) {
	r := gin.New()
	r.Use(SpanAttributes())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
