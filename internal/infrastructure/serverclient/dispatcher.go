package serverclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	appoffline "github.com/distribuidora/backend/internal/application/offline"
	"github.com/distribuidora/backend/internal/domain/offline"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// endpoint is the server call an operation type replays as. Paths with an
// ID take it from the payload's "id" field.
type endpoint struct {
	method string
	path   string
	withID bool
}

var endpoints = map[string]endpoint{
	offline.TypeCustomerCreate: {http.MethodPost, "/api/v1/customers", false},
	offline.TypeCustomerUpdate: {http.MethodPut, "/api/v1/customers/%s", true},
	offline.TypeOrderCreate:    {http.MethodPost, "/api/v1/orders", false},
	offline.TypeOrderPrepare:   {http.MethodPost, "/api/v1/orders/%s/prepare", true},
	offline.TypeOrderDispatch:  {http.MethodPost, "/api/v1/orders/%s/dispatch", true},
	offline.TypeOrderDeliver:   {http.MethodPost, "/api/v1/orders/%s/deliver", true},
	offline.TypeOrderCancel:    {http.MethodPost, "/api/v1/orders/%s/cancel", true},
	offline.TypePaymentCreate:  {http.MethodPost, "/api/v1/payments", false},
	offline.TypeRouteCreate:    {http.MethodPost, "/api/v1/routes", false},
}

// Supported reports whether an operation type can be replayed
func Supported(operationType string) bool {
	_, ok := endpoints[operationType]
	return ok
}

// Dispatch replays one queued operation. The operation ID goes out as the
// Idempotency-Key: retries of the same queued row collapse on the server,
// while a later operation with an identical payload is a new write.
func (c *Client) Dispatch(ctx context.Context, op *offline.Operation) error {
	ep, ok := endpoints[op.OperationType]
	if !ok {
		return fmt.Errorf("%w: %s", appoffline.ErrUnsupportedOperation, op.OperationType)
	}

	path := ep.path
	if ep.withID {
		var ref struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(op.Payload, &ref); err != nil {
			return &appoffline.RemoteError{StatusCode: http.StatusBadRequest, Code: "INVALID_PAYLOAD", Message: err.Error()}
		}
		if _, err := uuid.Parse(ref.ID); err != nil {
			return &appoffline.RemoteError{StatusCode: http.StatusBadRequest, Code: "INVALID_PAYLOAD", Message: "payload id must be a UUID"}
		}
		path = fmt.Sprintf(ep.path, ref.ID)
	}

	header := http.Header{}
	header.Set(IdempotencyHeader, op.ID.String())

	_, err := c.authorized(ctx, ep.method, path, op.Payload, header)
	if err != nil {
		c.logger.Debug("dispatch failed",
			zap.String("operation_id", op.ID.String()),
			zap.String("path", path),
			zap.Error(err),
		)
	}
	return err
}

// productPageSize is the largest page the product list endpoint serves
const productPageSize = 200

// maxProductPages bounds the walk in case the server keeps reporting more pages
const maxProductPages = 500

// FetchProducts downloads the active product list for the local stock
// pre-check cache, following the server's pagination to the last page
func (c *Client) FetchProducts(ctx context.Context) (json.RawMessage, error) {
	var products []json.RawMessage
	for page := 1; page <= maxProductPages; page++ {
		path := fmt.Sprintf("/api/v1/products?status=active&page=%d&page_size=%d", page, productPageSize)
		env, err := c.authorized(ctx, http.MethodGet, path, nil, nil)
		if err != nil {
			return nil, err
		}
		var items []json.RawMessage
		if err := json.Unmarshal(env.Data, &items); err != nil {
			return nil, fmt.Errorf("serverclient: unexpected product page %d: %w", page, err)
		}
		products = append(products, items...)
		if env.Meta == nil || page >= env.Meta.TotalPages || len(items) == 0 {
			break
		}
	}
	if products == nil {
		products = []json.RawMessage{}
	}
	return json.Marshal(products)
}

var (
	_ appoffline.Dispatcher = (*Client)(nil)
	_ appoffline.Prober     = (*Client)(nil)
)
