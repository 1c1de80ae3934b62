package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appoffline "github.com/distribuidora/backend/internal/application/offline"
	"github.com/distribuidora/backend/internal/domain/offline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStats offline.Stats

func (s fixedStats) Stats(context.Context) (offline.Stats, error) {
	return offline.Stats(s), nil
}

func TestAgentMetrics_Replay(t *testing.T) {
	m := NewAgentMetrics()

	m.ObserveDispatch(offline.TypeOrderCreate, appoffline.OutcomeCompleted, 20*time.Millisecond)
	m.ObserveDispatch(offline.TypeOrderCreate, appoffline.OutcomeCompleted, 30*time.Millisecond)
	m.ObserveDispatch(offline.TypePaymentCreate, appoffline.OutcomeTransient, time.Second)
	m.ObservePass(appoffline.ReplayResult{Completed: 2, Released: 1, Interrupted: true})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.dispatchTotal.WithLabelValues(offline.TypeOrderCreate, "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatchTotal.WithLabelValues(offline.TypePaymentCreate, "transient")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.passesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.interruptedTotal))
}

func TestAgentMetrics_ConnectivityAndQueue(t *testing.T) {
	m := NewAgentMetrics()

	m.ObserveConnectivity(true)
	m.ObserveConnectivity(false)
	m.ObserveConnectivity(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.online))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitionsTotal.WithLabelValues("online")))

	stats := fixedStats{offline.StatusPending: 4, offline.StatusFailed: 1}
	require.NoError(t, m.RefreshQueue(context.Background(), stats))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.queueDepth.WithLabelValues("pending")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.queueDepth.WithLabelValues("completed")))
}

func TestAgentMetrics_Handler(t *testing.T) {
	m := NewAgentMetrics()
	m.ObserveConnectivity(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "distribuidora_agent_server_online 1")
}
