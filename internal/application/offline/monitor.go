package offline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Prober checks whether the server is reachable
type Prober interface {
	Probe(ctx context.Context) error
}

// ConnectivityStatus is a snapshot of the monitor state
type ConnectivityStatus struct {
	Online      bool      `json:"online"`
	LastCheck   time.Time `json:"last_check"`
	LastChange  time.Time `json:"last_change"`
	LastError   string    `json:"last_error,omitempty"`
	Transitions int       `json:"transitions"`
}

// Monitor tracks connectivity to the server. It starts offline, so the first
// successful probe counts as an offline -> online transition.
type Monitor struct {
	prober   Prober
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	mu        sync.Mutex
	status    ConnectivityStatus
	listeners []func(online bool)
	checkNow  chan struct{}
}

// NewMonitor creates a Monitor probing every interval
func NewMonitor(prober Prober, interval, timeout time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		prober:   prober,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		checkNow: make(chan struct{}, 1),
	}
}

// OnTransition registers fn to run on every state change, with the new state.
// Listeners run synchronously and must not block.
func (m *Monitor) OnTransition(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// OnOnline registers fn to run on every offline -> online transition
func (m *Monitor) OnOnline(fn func()) {
	m.OnTransition(func(online bool) {
		if online {
			fn()
		}
	})
}

// Status returns the current snapshot
func (m *Monitor) Status() ConnectivityStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Online reports the last known state
func (m *Monitor) Online() bool {
	return m.Status().Online
}

// RequestCheck asks the running loop to probe now
func (m *Monitor) RequestCheck() {
	select {
	case m.checkNow <- struct{}{}:
	default:
	}
}

// Check probes once and applies the result
func (m *Monitor) Check(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.prober.Probe(probeCtx)
	cancel()
	m.Set(err == nil, err)
	return err == nil
}

// Set records a connectivity observation and notifies listeners on change.
// Dispatch failures can report offline through it without waiting for a probe.
func (m *Monitor) Set(online bool, cause error) {
	now := time.Now()
	m.mu.Lock()
	m.status.LastCheck = now
	if cause != nil {
		m.status.LastError = cause.Error()
	} else if online {
		m.status.LastError = ""
	}
	changed := m.status.Online != online
	if changed {
		m.status.Online = online
		m.status.LastChange = now
		m.status.Transitions++
	}
	listeners := append([]func(bool){}, m.listeners...)
	m.mu.Unlock()

	if !changed {
		return
	}
	if online {
		m.logger.Info("server reachable")
	} else {
		m.logger.Warn("server unreachable", zap.Error(cause))
	}
	for _, fn := range listeners {
		fn(online)
	}
}

// Run probes immediately and then on every interval until ctx is done
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		case <-m.checkNow:
			m.Check(ctx)
		}
	}
}
