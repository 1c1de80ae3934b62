// Package handler holds the gin handlers of the server API. Handlers bind and
// validate input, call one application service and wrap the result in the
// standard envelope.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/distribuidora/backend/internal/infrastructure/logger"
	"github.com/distribuidora/backend/internal/infrastructure/printing"
	"github.com/distribuidora/backend/internal/interfaces/http/dto"
	"github.com/distribuidora/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// reply writes data with 200, or the error
func (h *BaseHandler) reply(c *gin.Context) func(data any, err error) {
	return func(data any, err error) {
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, data)
	}
}

// created writes data with 201, or the error
func (h *BaseHandler) created(c *gin.Context) func(data any, err error) {
	return func(data any, err error) {
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Created(c, data)
	}
}

// done answers 204, or the error
func (h *BaseHandler) done(c *gin.Context, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ErrorWithCode sends an error response, deriving the status from the code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.ErrorWithCode(c, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.ErrorWithCode(c, dto.ErrCodeUnauthorized, message)
}

// HandleError converts an application error to the error envelope. Domain
// errors keep their code; anything else is logged and answered with 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.ErrorWithCode(c, domainErr.Code, domainErr.Message)
		return
	}
	if printing.RenderErrorCode(err) == printing.ErrCodeRenderTimeout {
		h.ErrorWithCode(c, dto.ErrCodeRenderTimeout, "Document rendering timed out")
		return
	}
	if errors.Is(err, context.Canceled) {
		// client went away
		c.Status(499)
		return
	}
	_ = c.Error(err)
	logger.FromContext(c.Request.Context()).Error("Unhandled error",
		zap.String("path", c.FullPath()), zap.Error(err))
	h.ErrorWithCode(c, dto.ErrCodeInternal, "An unexpected error occurred")
}

// bindJSON binds and validates the body, answering 400 on failure
func (h *BaseHandler) bindJSON(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// bindQuery binds and validates query parameters, answering 400 on failure
func (h *BaseHandler) bindQuery(c *gin.Context, out any) bool {
	if err := c.ShouldBindQuery(out); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// pathID parses the :id path parameter, answering 400 when it is not a UUID
func (h *BaseHandler) pathID(c *gin.Context) (uuid.UUID, bool) {
	return h.pathUUID(c, "id")
}

func (h *BaseHandler) pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, "Invalid "+name+": must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional UUID query parameter into *out
func (h *BaseHandler) queryUUID(c *gin.Context, name string, out **uuid.UUID) bool {
	raw := c.Query(name)
	if raw == "" {
		return true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, "Invalid "+name+": must be a UUID")
		return false
	}
	*out = &id
	return true
}

// paginated sends a page of items with pagination meta
func paginated[T any](c *gin.Context, page shared.Paginated[T]) {
	c.JSON(http.StatusOK, dto.NewPaginatedResponse(page))
}

// idFunc is a service call addressed by one aggregate ID
type idFunc[T any] func(ctx context.Context, id uuid.UUID) (*T, error)

// byID calls fn with the :id path parameter and answers with its result
func byID[T any](h *BaseHandler, c *gin.Context, fn idFunc[T]) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	out, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, out)
}

// byIDWithBody binds the JSON body into a fresh R and calls fn with it and
// the :id path parameter
func byIDWithBody[R, T any](h *BaseHandler, c *gin.Context, fn func(context.Context, uuid.UUID, R) (*T, error)) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req R
	if h.bindJSON(c, &req) {
		h.reply(c)(fn(c.Request.Context(), id, req))
	}
}
