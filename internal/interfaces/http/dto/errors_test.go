package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"NOT_FOUND", http.StatusNotFound},
		{"FORBIDDEN", http.StatusForbidden},
		{"DUPLICATE_REQUEST", http.StatusConflict},
		{"REFERENCED", http.StatusConflict},
		{"INSUFFICIENT_STOCK", http.StatusUnprocessableEntity},
		{"EXPORT_TOO_LARGE", http.StatusUnprocessableEntity},
		{"PDF_DISABLED", http.StatusNotImplemented},
		{"INVALID_QUANTITY", http.StatusBadRequest},
		{"ALREADY_ACTIVE", http.StatusUnprocessableEntity},
		{"RATE_LIMITED", http.StatusTooManyRequests},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewPaginatedResponse(t *testing.T) {
	resp := NewPaginatedResponse(shared.NewPaginated([]string{"a", "b"}, 5, 1, 2))
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"a", "b"}, resp.Data)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(5), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestNewPaginatedResponse_EmptyPageIsArray(t *testing.T) {
	resp := NewPaginatedResponse(shared.Paginated[int]{Page: 1, PageSize: 20})
	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"data":[]`)
}

func TestNewErrorResponse(t *testing.T) {
	body, err := json.Marshal(NewErrorResponse("FORBIDDEN", "missing order:cancel", "req-1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":{"code":"FORBIDDEN","message":"missing order:cancel","request_id":"req-1"}}`, string(body))
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-2", []ValidationDetail{
		{Field: "name", Message: "name is required", Tag: "required"},
	})
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Len(t, resp.Error.Details, 1)
}
