package agentapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	appoffline "github.com/distribuidora/backend/internal/application/offline"
	"github.com/distribuidora/backend/internal/domain/offline"
	"github.com/distribuidora/backend/internal/infrastructure/localstore"
	"github.com/distribuidora/backend/internal/infrastructure/telemetry"
	"github.com/distribuidora/backend/internal/interfaces/http/dto"
	"github.com/distribuidora/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type stubServer struct {
	down atomic.Bool

	mu   sync.Mutex
	sent []string
}

func (s *stubServer) Probe(context.Context) error {
	if s.down.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func (s *stubServer) Dispatch(_ context.Context, op *offline.Operation) error {
	if s.down.Load() {
		return errors.New("connection refused")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, op.OperationType)
	return nil
}

func (s *stubServer) dispatched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

type fixture struct {
	server   *stubServer
	queue    *appoffline.QueueService
	replayer *appoffline.Replayer
	monitor  *appoffline.Monitor
	handler  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := localstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	srv := &stubServer{}
	srv.down.Store(true)
	queue := appoffline.NewQueueService(localstore.NewQueueRepository(store), localstore.NewCacheStore(store), nil)
	cfg := appoffline.DefaultReplayConfig()
	cfg.Rate = 0
	replayer := appoffline.NewReplayer(queue, srv, cfg, nil)
	monitor := appoffline.NewMonitor(srv, time.Hour, time.Second, nil)

	api := New(context.Background(), Deps{
		Queue:     queue,
		Replayer:  replayer,
		Monitor:   monitor,
		Stock:     appoffline.NewStockChecker(queue, nil),
		Metrics:   telemetry.NewAgentMetrics(),
		Supported: func(t string) bool { return strings.Contains(t, ".") },
	})
	return &fixture{server: srv, queue: queue, replayer: replayer, monitor: monitor, handler: api.Handler()}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) dto.Response {
	t.Helper()
	var resp dto.Response
	if data != nil {
		resp.Data = data
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestEnqueue_OfflineThenDuplicate(t *testing.T) {
	f := newFixture(t)
	body := `{"operation_type":"customer.create","payload":{"name":"Kiosco Don Pepe","code":"C1"}}`

	w := f.do(http.MethodPost, "/queue", body)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var created EnqueueResponse
	decode(t, w, &created)
	require.NotNil(t, created.Operation)
	assert.Equal(t, offline.StatusPending, created.Operation.Status)

	// key order does not change the fingerprint
	w = f.do(http.MethodPost, "/queue", `{"operation_type":"customer.create","payload":{"code":"C1","name":"Kiosco Don Pepe"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	var dup EnqueueResponse
	decode(t, w, &dup)
	assert.True(t, dup.Duplicate)

	w = f.do(http.MethodGet, "/queue?status=pending", "")
	require.Equal(t, http.StatusOK, w.Code)
	var ops []offline.Operation
	decode(t, w, &ops)
	assert.Len(t, ops, 1)

	w = f.do(http.MethodGet, "/queue/"+created.Operation.ID.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.server.dispatched())
}

func TestEnqueue_Rejections(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/queue", `{"operation_type":"bogus","payload":{}}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/queue", `{"payload":{}}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/queue", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/queue?status=lost", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/queue?limit=-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/queue/not-a-uuid", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/queue/"+uuid.NewString(), "").Code)
}

func TestReplay_RequiresConnectivity(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusAccepted, f.do(http.MethodPost, "/queue",
		`{"operation_type":"order.deliver","payload":{"order_id":"`+uuid.NewString()+`"}}`).Code)

	w := f.do(http.MethodPost, "/queue/replay", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "OFFLINE", decode(t, w, nil).Error.Code)

	f.server.down.Store(false)
	w = f.do(http.MethodPost, "/connectivity/check", "")
	require.Equal(t, http.StatusOK, w.Code)
	var status appoffline.ConnectivityStatus
	decode(t, w, &status)
	assert.True(t, status.Online)

	w = f.do(http.MethodPost, "/queue/replay", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	f.replayer.Wait()
	assert.Equal(t, []string{"order.deliver"}, f.server.dispatched())

	w = f.do(http.MethodGet, "/queue/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats StatsResponse
	decode(t, w, &stats)
	assert.Equal(t, int64(1), stats.ByStatus[offline.StatusCompleted])
	assert.Equal(t, int64(0), stats.ByStatus[offline.StatusPending])
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, 1, stats.Replay.LastResult.Completed)
}

func TestEnqueue_OnlineDrainsImmediately(t *testing.T) {
	f := newFixture(t)
	f.server.down.Store(false)
	require.True(t, f.monitor.Check(context.Background()))

	require.Equal(t, http.StatusAccepted, f.do(http.MethodPost, "/queue",
		`{"operation_type":"payment.create","payload":{"amount":"100"}}`).Code)
	f.replayer.Wait()
	assert.Equal(t, []string{"payment.create"}, f.server.dispatched())
}

func TestCache_RoundTrip(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/cache/routes", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPut, "/cache/routes", "not json").Code)

	require.Equal(t, http.StatusNoContent, f.do(http.MethodPut, "/cache/routes", `[{"id":1}]`).Code)
	w := f.do(http.MethodGet, "/cache/routes", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":[{"id":1}]}`, w.Body.String())

	require.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/cache/routes", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/cache/routes", "").Code)
}

func TestStockCheck(t *testing.T) {
	f := newFixture(t)
	productID := uuid.New()
	line := `{"lines":[{"product_id":"` + productID.String() + `","quantity":"5"}]}`

	w := f.do(http.MethodPost, "/stock-check", line)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "PRODUCTS_NOT_CACHED", decode(t, w, nil).Error.Code)

	products := `[{"id":"` + productID.String() + `","sku":"FID-500","name":"Fideos","stock":"8"}]`
	require.Equal(t, http.StatusNoContent, f.do(http.MethodPut, "/cache/products", products).Code)

	w = f.do(http.MethodPost, "/stock-check", line)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result appoffline.StockCheckResult
	decode(t, w, &result)
	assert.True(t, result.OK)

	// a queued order claims 4 of the 8 units
	require.Equal(t, http.StatusAccepted, f.do(http.MethodPost, "/queue",
		`{"operation_type":"order.create","payload":{"items":[{"product_id":"`+productID.String()+`","quantity":"4"}]}}`).Code)
	w = f.do(http.MethodPost, "/stock-check", line)
	require.Equal(t, http.StatusOK, w.Code)
	result = appoffline.StockCheckResult{}
	decode(t, w, &result)
	assert.False(t, result.OK)
	require.Len(t, result.Shortfalls, 1)
	assert.Equal(t, "4", result.Shortfalls[0].Available.String())

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/stock-check", `{"lines":[]}`).Code)
}

func TestMetrics_ReportsQueueDepth(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusAccepted, f.do(http.MethodPost, "/queue",
		`{"operation_type":"route.create","payload":{"name":"Zona norte"}}`).Code)

	w := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `distribuidora_agent_queue_operations{status="pending"} 1`)
}
