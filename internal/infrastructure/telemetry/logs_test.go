package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ sdklog.Processor = (*recordingProcessor)(nil)

type recordingProcessor struct {
	mu     sync.Mutex
	bodies []string
}

func (p *recordingProcessor) OnEmit(_ context.Context, r *sdklog.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bodies = append(p.bodies, r.Body().AsString())
	return nil
}

func (p *recordingProcessor) Enabled(context.Context, sdklog.EnabledParameters) bool { return true }

func (p *recordingProcessor) Shutdown(context.Context) error   { return nil }
func (p *recordingProcessor) ForceFlush(context.Context) error { return nil }

func TestLoggerProvider_Disabled(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.False(t, lp.Core("svc", zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))
	assert.NoError(t, lp.Shutdown(context.Background()))
}

func TestLoggerProvider_CoreFiltersByLevel(t *testing.T) {
	proc := &recordingProcessor{}
	lp := newLoggerProviderFrom(sdklog.NewLoggerProvider(sdklog.WithProcessor(proc)))

	log := zap.New(lp.Core("distribuidora", zapcore.WarnLevel))
	log.Info("dropped")
	log.Warn("stock below minimum", zap.String("sku", "ACE-900"))
	log.With(zap.String("request_id", "r1")).Error("order failed")

	proc.mu.Lock()
	defer proc.mu.Unlock()
	assert.Equal(t, []string{"stock below minimum", "order failed"}, proc.bodies)
}

func TestLevelFilterCore_TeesWithPrimary(t *testing.T) {
	primary, primaryLogs := observer.New(zapcore.DebugLevel)
	bridged, bridgedLogs := observer.New(zapcore.DebugLevel)
	core := zapcore.NewTee(primary, &levelFilterCore{Core: bridged, minLevel: zapcore.ErrorLevel})

	log := zap.New(core)
	log.Debug("debug line")
	log.Error("error line")

	assert.Equal(t, 2, primaryLogs.Len())
	require.Equal(t, 1, bridgedLogs.Len())
	assert.Equal(t, "error line", bridgedLogs.All()[0].Message)
}
