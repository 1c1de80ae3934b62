package serverclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	appoffline "github.com/distribuidora/backend/internal/application/offline"
	"github.com/distribuidora/backend/internal/domain/offline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method         string
	Path           string
	Authorization  string
	IdempotencyKey string
	Body           string
}

type testServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
	seenKeys map[string]bool
	created  int
	logins   int
	token    string
	products []map[string]string
	pageSize int
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		seenKeys: map[string]bool{},
		token:    "token-1",
		products: []map[string]string{{"sku": "AGUA-500"}},
		pageSize: 200,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		ts.mu.Lock()
		ts.logins++
		token := ts.token
		ts.mu.Unlock()
		if creds["password"] != "secret" {
			writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password")
			return
		}
		writeData(w, http.StatusOK, map[string]string{"access_token": token})
	})
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ts.mu.Lock()
		defer ts.mu.Unlock()
		rec := recordedRequest{
			Method:         r.Method,
			Path:           r.URL.Path,
			Authorization:  r.Header.Get("Authorization"),
			IdempotencyKey: r.Header.Get(IdempotencyHeader),
			Body:           string(body),
		}
		ts.requests = append(ts.requests, rec)
		if rec.Authorization != "Bearer "+ts.token {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "token expired")
			return
		}
		if r.Method == http.MethodGet {
			ts.writeProductPage(w, r)
			return
		}
		if ts.seenKeys[rec.IdempotencyKey] {
			writeError(w, http.StatusConflict, "DUPLICATE_REQUEST", "request already processed")
			return
		}
		if r.URL.Path == "/api/v1/payments" {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "missing permission payment:create")
			return
		}
		ts.seenKeys[rec.IdempotencyKey] = true
		ts.created++
		writeData(w, http.StatusCreated, map[string]string{"id": "new"})
	})
	ts.Server = httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

// writeProductPage serves ts.products in pages of ts.pageSize. Callers hold ts.mu.
func (ts *testServer) writeProductPage(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	page = max(page, 1)
	totalPages := max((len(ts.products)+ts.pageSize-1)/ts.pageSize, 1)
	start := min((page-1)*ts.pageSize, len(ts.products))
	end := min(start+ts.pageSize, len(ts.products))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    ts.products[start:end],
		"meta": map[string]any{
			"total":       len(ts.products),
			"page":        page,
			"page_size":   ts.pageSize,
			"total_pages": totalPages,
		},
	})
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
}

func newClient(t *testing.T, baseURL, password string) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL, Username: "chofer1", Password: password}, nil)
	require.NoError(t, err)
	return c
}

func TestNew_InvalidBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "localhost"}, nil)
	assert.Error(t, err)
}

func TestClient_Probe(t *testing.T) {
	ts := newTestServer(t)
	assert.NoError(t, newClient(t, ts.URL, "secret").Probe(context.Background()))

	ts.Close()
	err := newClient(t, ts.URL, "secret").Probe(context.Background())
	require.Error(t, err)
	assert.Equal(t, appoffline.OutcomeTransient, appoffline.Classify(err))
}

func TestClient_DispatchSendsIdempotencyKey(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t, ts.URL, "secret")

	op, err := offline.NewOperation(offline.TypeCustomerCreate, map[string]any{"code": "C100", "name": "Almacen Don Luis"})
	require.NoError(t, err)

	require.NoError(t, client.Dispatch(context.Background(), op))

	ts.mu.Lock()
	defer ts.mu.Unlock()
	require.Len(t, ts.requests, 1)
	got := ts.requests[0]
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/api/v1/customers", got.Path)
	assert.Equal(t, op.ID.String(), got.IdempotencyKey)
	assert.Equal(t, "Bearer token-1", got.Authorization)
	assert.JSONEq(t, `{"code":"C100","name":"Almacen Don Luis"}`, got.Body)
	assert.Equal(t, 1, ts.logins)
}

func TestClient_DispatchTwiceIsCompletedByDuplicateAnswer(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t, ts.URL, "secret")

	op, err := offline.NewOperation(offline.TypeOrderCreate, map[string]any{"customer_id": "x"})
	require.NoError(t, err)

	require.NoError(t, client.Dispatch(context.Background(), op))
	err = client.Dispatch(context.Background(), op)
	require.Error(t, err)

	var remote *appoffline.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusConflict, remote.StatusCode)
	assert.Equal(t, "DUPLICATE_REQUEST", remote.Code)
	assert.Equal(t, appoffline.OutcomeCompleted, appoffline.Classify(err))
}

func TestClient_DispatchIdenticalPayloadsAreSeparateWrites(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t, ts.URL, "secret")
	payload := map[string]any{"customer_id": "x", "items": []any{map[string]any{"sku": "AGUA-500", "quantity": 2}}}

	first, err := offline.NewOperation(offline.TypeOrderCreate, payload)
	require.NoError(t, err)
	second, err := offline.NewOperation(offline.TypeOrderCreate, payload)
	require.NoError(t, err)
	require.Equal(t, first.Fingerprint, second.Fingerprint)

	require.NoError(t, client.Dispatch(context.Background(), first))
	require.NoError(t, client.Dispatch(context.Background(), second))

	ts.mu.Lock()
	defer ts.mu.Unlock()
	assert.Equal(t, 2, ts.created)
	require.Len(t, ts.requests, 2)
	assert.NotEqual(t, ts.requests[0].IdempotencyKey, ts.requests[1].IdempotencyKey)
}

func TestClient_DispatchPathWithID(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t, ts.URL, "secret")

	id := "6f1c1f7e-4a7b-4c6e-9c1e-1b2f3a4d5e6f"
	op, err := offline.NewOperation(offline.TypeOrderDeliver, map[string]any{"id": id})
	require.NoError(t, err)
	require.NoError(t, client.Dispatch(context.Background(), op))

	ts.mu.Lock()
	assert.Equal(t, "/api/v1/orders/"+id+"/deliver", ts.requests[0].Path)
	ts.mu.Unlock()

	bad, err := offline.NewOperation(offline.TypeOrderCancel, map[string]any{"id": "nope"})
	require.NoError(t, err)
	err = client.Dispatch(context.Background(), bad)
	assert.Equal(t, appoffline.OutcomePermanent, appoffline.Classify(err))
}

func TestClient_DispatchForbiddenIsPermanent(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t, ts.URL, "secret")

	op, err := offline.NewOperation(offline.TypePaymentCreate, map[string]any{"amount": "10"})
	require.NoError(t, err)

	err = client.Dispatch(context.Background(), op)
	var remote *appoffline.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "FORBIDDEN", remote.Code)
	assert.Equal(t, appoffline.OutcomePermanent, appoffline.Classify(err))
}

func TestClient_DispatchUnsupportedType(t *testing.T) {
	client := newClient(t, "http://127.0.0.1:1", "secret")
	op, err := offline.NewOperation("product.delete", map[string]any{"id": "x"})
	require.NoError(t, err)

	err = client.Dispatch(context.Background(), op)
	assert.ErrorIs(t, err, appoffline.ErrUnsupportedOperation)
	assert.False(t, Supported("product.delete"))
	assert.True(t, Supported(offline.TypeRouteCreate))
}

func TestClient_ReloginOnExpiredToken(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t, ts.URL, "secret")
	ctx := context.Background()

	first, err := offline.NewOperation(offline.TypeRouteCreate, map[string]any{"name": "Zona Norte"})
	require.NoError(t, err)
	require.NoError(t, client.Dispatch(ctx, first))

	ts.mu.Lock()
	ts.token = "token-2"
	ts.mu.Unlock()

	second, err := offline.NewOperation(offline.TypeRouteCreate, map[string]any{"name": "Zona Sur"})
	require.NoError(t, err)
	require.NoError(t, client.Dispatch(ctx, second))

	ts.mu.Lock()
	defer ts.mu.Unlock()
	assert.Equal(t, 2, ts.logins)
	assert.Equal(t, "Bearer token-2", ts.requests[len(ts.requests)-1].Authorization)
}

func TestClient_LoginRejected(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t, ts.URL, "wrong")

	err := client.Login(context.Background())
	assert.ErrorIs(t, err, ErrLoginFailed)
}

func TestClient_FetchProducts(t *testing.T) {
	ts := newTestServer(t)
	client := newClient(t, ts.URL, "secret")

	data, err := client.FetchProducts(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `[{"sku":"AGUA-500"}]`, string(data))

	ts.mu.Lock()
	defer ts.mu.Unlock()
	require.Len(t, ts.requests, 1)
	assert.Equal(t, "/api/v1/products", ts.requests[0].Path)
}

func TestClient_FetchProductsFollowsPages(t *testing.T) {
	ts := newTestServer(t)
	ts.pageSize = 2
	ts.products = []map[string]string{
		{"sku": "AGUA-500"}, {"sku": "AGUA-1500"}, {"sku": "GASEOSA-2250"},
		{"sku": "JUGO-1000"}, {"sku": "SODA-2000"},
	}
	client := newClient(t, ts.URL, "secret")

	data, err := client.FetchProducts(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `[{"sku":"AGUA-500"},{"sku":"AGUA-1500"},{"sku":"GASEOSA-2250"},{"sku":"JUGO-1000"},{"sku":"SODA-2000"}]`, string(data))

	ts.mu.Lock()
	defer ts.mu.Unlock()
	assert.Len(t, ts.requests, 3)
}

func TestClient_FetchProductsEmptyCatalog(t *testing.T) {
	ts := newTestServer(t)
	ts.products = nil
	client := newClient(t, ts.URL, "secret")

	data, err := client.FetchProducts(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}
