package offline

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a queued operation
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// AllStatuses lists every status in lifecycle order
var AllStatuses = []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}

// IsValid checks if the status is known
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsActive reports whether an operation in this status suppresses a duplicate enqueue
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusProcessing
}

// CanTransitionTo reports whether the queue state machine allows from -> to.
// processing -> pending is the release path for transient failures.
func (s Status) CanTransitionTo(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed || to == StatusPending
	}
	return false
}

// Operation types understood by the dispatcher
const (
	TypeCustomerCreate = "customer.create"
	TypeCustomerUpdate = "customer.update"
	TypeOrderCreate    = "order.create"
	TypeOrderPrepare   = "order.prepare"
	TypeOrderDispatch  = "order.dispatch"
	TypeOrderDeliver   = "order.deliver"
	TypeOrderCancel    = "order.cancel"
	TypePaymentCreate  = "payment.create"
	TypeRouteCreate    = "route.create"
)

var (
	// ErrNotClaimable is returned when an operation is no longer pending
	ErrNotClaimable = errors.New("offline: operation is not pending")
	// ErrInvalidTransition is returned when a status change skips the state machine
	ErrInvalidTransition = errors.New("offline: invalid status transition")
	// ErrOperationNotFound is returned for an unknown operation ID
	ErrOperationNotFound = errors.New("offline: operation not found")
	// ErrDuplicateOperation is returned by a store when an active operation has the same fingerprint
	ErrDuplicateOperation = errors.New("offline: duplicate operation")
	// ErrCacheMiss is returned when a cache key does not exist
	ErrCacheMiss = errors.New("offline: cache miss")
	// ErrEmptyOperationType is returned when enqueueing without a type
	ErrEmptyOperationType = errors.New("offline: operation type is required")
)

// Operation is a write intent captured while offline, replayed later against the server
type Operation struct {
	ID            uuid.UUID       `json:"id"`
	OperationType string          `json:"operation_type"`
	Payload       json.RawMessage `json:"payload"`
	Fingerprint   string          `json:"fingerprint"`
	Status        Status          `json:"status"`
	EnqueuedAt    time.Time       `json:"enqueued_at"`
	StartedAt     *time.Time      `json:"started_at,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	Attempts      int             `json:"attempts"`
	LastError     string          `json:"last_error,omitempty"`
}

// NewOperation builds a pending operation with a canonical payload and its fingerprint
func NewOperation(operationType string, payload any) (*Operation, error) {
	if operationType == "" {
		return nil, ErrEmptyOperationType
	}
	canonical, err := CanonicalJSON(payload)
	if err != nil {
		return nil, err
	}
	return &Operation{
		ID:            uuid.New(),
		OperationType: operationType,
		Payload:       canonical,
		Fingerprint:   fingerprintCanonical(operationType, canonical),
		Status:        StatusPending,
		EnqueuedAt:    time.Now().UTC(),
	}, nil
}

// DecodePayload unmarshals the payload into dest
func (o *Operation) DecodePayload(dest any) error {
	return json.Unmarshal(o.Payload, dest)
}

// Fingerprint is hex(sha256(type + 0x00 + canonical JSON of payload))
func Fingerprint(operationType string, payload any) (string, error) {
	canonical, err := CanonicalJSON(payload)
	if err != nil {
		return "", err
	}
	return fingerprintCanonical(operationType, canonical), nil
}

func fingerprintCanonical(operationType string, canonical []byte) string {
	h := sha256.New()
	h.Write([]byte(operationType))
	h.Write([]byte{0})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil))
}

// CanonicalJSON encodes payload with object keys sorted at every level.
// Numbers keep their literal text so 1.50 and 1.5 stay distinct.
func CanonicalJSON(payload any) ([]byte, error) {
	var raw []byte
	switch v := payload.(type) {
	case nil:
		return []byte("null"), nil
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("offline: encode payload: %w", err)
		}
		raw = b
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("offline: payload is not valid JSON: %w", err)
	}
	// encoding/json writes map keys in sorted order
	out, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("offline: canonicalize payload: %w", err)
	}
	return out, nil
}
