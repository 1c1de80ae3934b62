package dto

import (
	"net/http"
	"strings"
)

// Error codes produced by the HTTP layer itself. Domain errors keep the code
// they were raised with so clients (the agent replay) can classify them.
const (
	ErrCodeInternal          = "INTERNAL_ERROR"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeTokenExpired      = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid      = "TOKEN_INVALID"
	ErrCodeTokenRevoked      = "TOKEN_REVOKED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeDuplicateRequest  = "DUPLICATE_REQUEST"
	ErrCodeRequestInProgress = "REQUEST_IN_PROGRESS"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeBodyTooLarge      = "BODY_TOO_LARGE"
	ErrCodeRenderTimeout     = "RENDER_TIMEOUT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	"SAVE_FAILED":       http.StatusInternalServerError,
	"TOKEN_ERROR":       http.StatusInternalServerError,
	ErrCodeValidation:   http.StatusBadRequest,
	"VALIDATION_ERRORS": http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	"NO_ITEMS":          http.StatusBadRequest,
	"NO_STOPS":          http.StatusBadRequest,

	ErrCodeUnauthorized:   http.StatusUnauthorized,
	"INVALID_CREDENTIALS": http.StatusUnauthorized,
	ErrCodeTokenExpired:   http.StatusUnauthorized,
	ErrCodeTokenInvalid:   http.StatusUnauthorized,
	ErrCodeTokenRevoked:   http.StatusUnauthorized,
	"TOKEN_MAX_REFRESH":   http.StatusUnauthorized,

	ErrCodeForbidden:      http.StatusForbidden,
	"CANNOT_MODIFY_SELF":  http.StatusForbidden,
	"ACCOUNT_LOCKED":      http.StatusForbidden,
	"ACCOUNT_DEACTIVATED": http.StatusForbidden,
	"ACCOUNT_INACTIVE":    http.StatusForbidden,

	ErrCodeNotFound:  http.StatusNotFound,
	"USER_NOT_FOUND": http.StatusNotFound,

	ErrCodeConflict:          http.StatusConflict,
	"ALREADY_EXISTS":         http.StatusConflict,
	"USERNAME_EXISTS":        http.StatusConflict,
	"EMAIL_EXISTS":           http.StatusConflict,
	"REFERENCED":             http.StatusConflict,
	"CONCURRENCY_CONFLICT":   http.StatusConflict,
	ErrCodeDuplicateRequest:  http.StatusConflict,
	ErrCodeRequestInProgress: http.StatusConflict,

	ErrCodeBodyTooLarge: http.StatusRequestEntityTooLarge,

	"INVALID_STATE":      http.StatusUnprocessableEntity,
	"INSUFFICIENT_STOCK": http.StatusUnprocessableEntity,
	"NO_DRIVER":          http.StatusUnprocessableEntity,
	"EXPORT_TOO_LARGE":   http.StatusUnprocessableEntity,

	ErrCodeRateLimited: http.StatusTooManyRequests,

	"PDF_DISABLED": http.StatusNotImplemented,

	ErrCodeRenderTimeout: http.StatusGatewayTimeout,

	"OFFLINE":             http.StatusServiceUnavailable,
	"PRODUCTS_NOT_CACHED": http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status for an error code. Unlisted
// INVALID_* and ALREADY_* codes are input and state errors; anything else
// unknown is a server error.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	switch {
	case strings.HasPrefix(code, "INVALID_"):
		return http.StatusBadRequest
	case strings.HasPrefix(code, "ALREADY_"):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
