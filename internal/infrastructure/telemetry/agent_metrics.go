package telemetry

import (
	"context"
	"net/http"
	"time"

	appoffline "github.com/distribuidora/backend/internal/application/offline"
	"github.com/distribuidora/backend/internal/domain/offline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AgentMetrics exposes the agent's queue, replay and connectivity state to
// Prometheus. It uses its own registry so tests and the agent never collide
// with the global one.
type AgentMetrics struct {
	registry *prometheus.Registry

	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	passesTotal      prometheus.Counter
	interruptedTotal prometheus.Counter
	online           prometheus.Gauge
	transitionsTotal *prometheus.CounterVec
	queueDepth       *prometheus.GaugeVec
}

// NewAgentMetrics creates the collectors and registers them
func NewAgentMetrics() *AgentMetrics {
	m := &AgentMetrics{
		registry: prometheus.NewRegistry(),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "distribuidora_agent",
			Name:      "dispatch_total",
			Help:      "Replayed operations by type and outcome.",
		}, []string{"operation_type", "outcome"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "distribuidora_agent",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent sending one operation to the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation_type"}),
		passesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "distribuidora_agent",
			Name:      "replay_passes_total",
			Help:      "Completed replay passes.",
		}),
		interruptedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "distribuidora_agent",
			Name:      "replay_interrupted_total",
			Help:      "Replay passes stopped by a transient failure.",
		}),
		online: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "distribuidora_agent",
			Name:      "server_online",
			Help:      "1 when the server is reachable.",
		}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "distribuidora_agent",
			Name:      "connectivity_transitions_total",
			Help:      "Connectivity changes by new state.",
		}, []string{"state"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "distribuidora_agent",
			Name:      "queue_operations",
			Help:      "Queued operations by status.",
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		m.dispatchTotal,
		m.dispatchDuration,
		m.passesTotal,
		m.interruptedTotal,
		m.online,
		m.transitionsTotal,
		m.queueDepth,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing the metrics
func (m *AgentMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *AgentMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveDispatch implements appoffline.ReplayObserver
func (m *AgentMetrics) ObserveDispatch(operationType string, outcome appoffline.Outcome, duration time.Duration) {
	m.dispatchTotal.WithLabelValues(operationType, outcome.String()).Inc()
	m.dispatchDuration.WithLabelValues(operationType).Observe(duration.Seconds())
}

// ObservePass implements appoffline.ReplayObserver
func (m *AgentMetrics) ObservePass(result appoffline.ReplayResult) {
	m.passesTotal.Inc()
	if result.Interrupted {
		m.interruptedTotal.Inc()
	}
}

// ObserveConnectivity records a monitor transition
func (m *AgentMetrics) ObserveConnectivity(online bool) {
	if online {
		m.online.Set(1)
		m.transitionsTotal.WithLabelValues("online").Inc()
		return
	}
	m.online.Set(0)
	m.transitionsTotal.WithLabelValues("offline").Inc()
}

// StatsSource reports queue counts per status
type StatsSource interface {
	Stats(ctx context.Context) (offline.Stats, error)
}

// RefreshQueue copies the current queue counts into the depth gauge
func (m *AgentMetrics) RefreshQueue(ctx context.Context, source StatsSource) error {
	stats, err := source.Stats(ctx)
	if err != nil {
		return err
	}
	for _, status := range offline.AllStatuses {
		m.queueDepth.WithLabelValues(string(status)).Set(float64(stats[status]))
	}
	return nil
}

var _ appoffline.ReplayObserver = (*AgentMetrics)(nil)
