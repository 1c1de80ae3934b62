package printing

import (
	"context"
	"errors"
	"time"
)

// RenderRequest is one HTML document to print. Delivery notes are portrait,
// route sheets landscape; both use A4 with 12mm margins.
type RenderRequest struct {
	HTML      string
	Title     string
	Landscape bool
	// Timeout overrides the renderer's default when positive
	Timeout time.Duration
}

type RenderResult struct {
	PDFData        []byte
	PageCount      int
	RenderDuration time.Duration
}

// PDFRenderer turns HTML into PDF bytes
type PDFRenderer interface {
	Render(ctx context.Context, req *RenderRequest) (*RenderResult, error)
	Close() error
}

const (
	ErrCodeRenderTimeout = "RENDER_TIMEOUT"
	ErrCodeRenderFailed  = "RENDER_FAILED"
	ErrCodeInvalidHTML   = "INVALID_HTML"
	ErrCodeUnknownLayout = "UNKNOWN_TEMPLATE"
)

// RenderError classifies a failure while building or printing a document
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{Code: code, Message: message, Cause: cause}
}

func (e *RenderError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *RenderError) Unwrap() error { return e.Cause }

// RenderErrorCode returns the code of the first RenderError in err's chain,
// or "" when err did not come from this package
func RenderErrorCode(err error) string {
	var re *RenderError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
