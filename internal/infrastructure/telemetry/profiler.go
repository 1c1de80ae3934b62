package telemetry

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

// ProfilerConfig points continuous profiling at a Pyroscope server
type ProfilerConfig struct {
	Enabled         bool
	ServerAddress   string
	ApplicationName string
}

func (c ProfilerConfig) validate() error {
	switch {
	case c.ServerAddress == "":
		return errors.New("profiler server address is required when profiling is enabled")
	case c.ApplicationName == "":
		return errors.New("profiler application name is required when profiling is enabled")
	}
	return nil
}

// Profiler pushes CPU, allocation and goroutine profiles. The zero value,
// as returned for a disabled config, does nothing.
type Profiler struct {
	session *pyroscope.Profiler
	log     *zap.Logger
	stop    sync.Once
}

func NewProfiler(cfg ProfilerConfig, log *zap.Logger) (*Profiler, error) {
	log = nopLogger(log)
	if !cfg.Enabled {
		return &Profiler{log: log}, nil
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	host, _ := os.Hostname()
	session, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ApplicationName,
		ServerAddress:   cfg.ServerAddress,
		Logger:          log.Named("pyroscope").Sugar(),
		Tags:            map[string]string{"hostname": host},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("start pyroscope: %w", err)
	}
	log.Info("Profiling to Pyroscope", zap.String("server", cfg.ServerAddress), zap.String("app", cfg.ApplicationName))
	return &Profiler{session: session, log: log}, nil
}

func (p *Profiler) IsEnabled() bool { return p.session != nil }

// Stop flushes the last profiles; later calls are no-ops
func (p *Profiler) Stop() error {
	var err error
	p.stop.Do(func() {
		if p.session == nil {
			return
		}
		if err = p.session.Stop(); err != nil {
			err = fmt.Errorf("stop pyroscope: %w", err)
		}
	})
	return err
}
