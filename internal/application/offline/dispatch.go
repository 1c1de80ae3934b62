package offline

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/distribuidora/backend/internal/domain/offline"
)

// Dispatcher sends one queued operation to the server
type Dispatcher interface {
	Dispatch(ctx context.Context, op *offline.Operation) error
}

// Outcome is how a dispatch result moves the operation
type Outcome int

const (
	// OutcomeCompleted marks the operation completed
	OutcomeCompleted Outcome = iota
	// OutcomePermanent marks the operation failed
	OutcomePermanent
	// OutcomeTransient releases the operation back to pending
	OutcomeTransient
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomePermanent:
		return "failed"
	default:
		return "transient"
	}
}

// RemoteError is a non-2xx answer from the server
type RemoteError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (HTTP %d)", e.Code, e.Message, e.StatusCode)
}

// ErrUnsupportedOperation is returned for an operation type with no server mapping
var ErrUnsupportedOperation = errors.New("unsupported operation type")

// Classify maps a dispatch error to an outcome. A 409 answer means the server
// already applied the same request, so the operation is complete. Any error
// that is not a server answer (network, timeout) is transient.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeCompleted
	}
	if errors.Is(err, ErrUnsupportedOperation) {
		return OutcomePermanent
	}
	var remote *RemoteError
	if !errors.As(err, &remote) {
		return OutcomeTransient
	}
	switch {
	case remote.StatusCode == http.StatusConflict && remote.Code == "DUPLICATE_REQUEST":
		return OutcomeCompleted
	case remote.StatusCode == http.StatusTooManyRequests,
		remote.StatusCode == http.StatusRequestTimeout,
		remote.StatusCode >= 500:
		return OutcomeTransient
	case remote.StatusCode >= 400:
		return OutcomePermanent
	}
	return OutcomeCompleted
}
