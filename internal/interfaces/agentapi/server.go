// Package agentapi serves the loopback HTTP API the local UI uses to talk to
// the offline agent: queueing writes, reading connectivity and caching data.
package agentapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	appoffline "github.com/distribuidora/backend/internal/application/offline"
	"github.com/distribuidora/backend/internal/domain/offline"
	"github.com/distribuidora/backend/internal/infrastructure/logger"
	"github.com/distribuidora/backend/internal/infrastructure/telemetry"
	"github.com/distribuidora/backend/internal/interfaces/http/dto"
	"github.com/distribuidora/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	maxBodySize      = 1 << 20
)

// Deps are the agent components the API exposes. Metrics may be nil.
type Deps struct {
	Queue    *appoffline.QueueService
	Replayer *appoffline.Replayer
	Monitor  *appoffline.Monitor
	Stock    *appoffline.StockChecker
	Metrics  *telemetry.AgentMetrics
	// Supported reports whether the dispatcher can replay an operation type
	Supported func(operationType string) bool
	Logger    *zap.Logger
}

// Server is the agent's local API
type Server struct {
	deps Deps
	// base outlives requests so a replay started from the API is not
	// cancelled when the response is written
	base context.Context
}

// New creates a Server. base bounds replays triggered through the API.
func New(base context.Context, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Supported == nil {
		deps.Supported = func(string) bool { return true }
	}
	return &Server{deps: deps, base: base}
}

// Handler builds the gin engine serving the API
func (s *Server) Handler() http.Handler {
	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		logger.Recovery(s.deps.Logger),
		logger.GinMiddleware(s.deps.Logger),
		middleware.BodyLimit(maxBodySize),
	)

	engine.POST("/queue", s.enqueue)
	engine.GET("/queue", s.list)
	engine.GET("/queue/stats", s.stats)
	engine.POST("/queue/replay", s.replay)
	engine.GET("/queue/:id", s.get)
	engine.GET("/connectivity", s.connectivity)
	engine.POST("/connectivity/check", s.checkConnectivity)
	engine.PUT("/cache/:key", s.putCache)
	engine.GET("/cache/:key", s.getCache)
	engine.DELETE("/cache/:key", s.deleteCache)
	engine.POST("/stock-check", s.stockCheck)
	if s.deps.Metrics != nil {
		engine.GET("/metrics", s.metrics)
	}
	return engine
}

func success(c *gin.Context, status int, data any) {
	c.JSON(status, dto.NewSuccessResponse(data))
}

func fail(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, message, middleware.GetRequestID(c)))
}

func (s *Server) internal(c *gin.Context, err error) {
	logger.FromContext(c.Request.Context()).Error("agent api request failed", zap.Error(err))
	fail(c, dto.ErrCodeInternal, "Internal error")
}

// EnqueueRequest is the body of POST /queue
type EnqueueRequest struct {
	OperationType string          `json:"operation_type" binding:"required"`
	Payload       json.RawMessage `json:"payload" binding:"required"`
}

// EnqueueResponse reports the stored operation, or that an identical one is
// already waiting
type EnqueueResponse struct {
	Operation *offline.Operation `json:"operation,omitempty"`
	Duplicate bool               `json:"duplicate"`
}

func (s *Server) enqueue(c *gin.Context) {
	var req EnqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	if !s.deps.Supported(req.OperationType) {
		fail(c, dto.ErrCodeValidation, "Unsupported operation type "+req.OperationType)
		return
	}
	op, err := s.deps.Queue.Enqueue(c.Request.Context(), req.OperationType, req.Payload)
	if err != nil {
		if errors.Is(err, offline.ErrEmptyOperationType) {
			fail(c, dto.ErrCodeValidation, err.Error())
			return
		}
		s.internal(c, err)
		return
	}
	if op == nil {
		success(c, http.StatusOK, EnqueueResponse{Duplicate: true})
		return
	}
	// an online agent drains right away
	if s.deps.Monitor != nil && s.deps.Monitor.Online() && s.deps.Replayer != nil {
		s.deps.Replayer.Trigger(s.base)
	}
	success(c, http.StatusAccepted, EnqueueResponse{Operation: op})
}

func (s *Server) list(c *gin.Context) {
	status := offline.Status(c.DefaultQuery("status", string(offline.StatusPending)))
	if !status.IsValid() {
		fail(c, dto.ErrCodeValidation, "Unknown status "+string(status))
		return
	}
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			fail(c, dto.ErrCodeValidation, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}
	ops, err := s.deps.Queue.List(c.Request.Context(), status, limit)
	if err != nil {
		s.internal(c, err)
		return
	}
	if ops == nil {
		ops = []*offline.Operation{}
	}
	success(c, http.StatusOK, ops)
}

func (s *Server) get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, dto.ErrCodeValidation, "Invalid operation id")
		return
	}
	op, err := s.deps.Queue.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, offline.ErrOperationNotFound) {
			fail(c, dto.ErrCodeNotFound, "Operation not found")
			return
		}
		s.internal(c, err)
		return
	}
	success(c, http.StatusOK, op)
}

// StatsResponse is the body of GET /queue/stats
type StatsResponse struct {
	ByStatus offline.Stats `json:"by_status"`
	Total    int64         `json:"total"`
	Replay   ReplayState   `json:"replay"`
}

// ReplayState describes the replayer
type ReplayState struct {
	Running    bool                    `json:"running"`
	LastResult appoffline.ReplayResult `json:"last_result"`
}

func (s *Server) replayState() ReplayState {
	if s.deps.Replayer == nil {
		return ReplayState{}
	}
	return ReplayState{Running: s.deps.Replayer.Running(), LastResult: s.deps.Replayer.LastResult()}
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.deps.Queue.Stats(c.Request.Context())
	if err != nil {
		s.internal(c, err)
		return
	}
	full := make(offline.Stats, len(offline.AllStatuses))
	for _, status := range offline.AllStatuses {
		full[status] = stats[status]
	}
	success(c, http.StatusOK, StatsResponse{ByStatus: full, Total: full.Total(), Replay: s.replayState()})
}

func (s *Server) replay(c *gin.Context) {
	if s.deps.Replayer == nil {
		fail(c, dto.ErrCodeBadRequest, "Replay is not configured")
		return
	}
	if s.deps.Monitor != nil && !s.deps.Monitor.Online() {
		s.deps.Monitor.RequestCheck()
		fail(c, "OFFLINE", "Server is unreachable; the queue replays when the connection returns")
		return
	}
	s.deps.Replayer.Trigger(s.base)
	success(c, http.StatusAccepted, s.replayState())
}

func (s *Server) connectivity(c *gin.Context) {
	if s.deps.Monitor == nil {
		fail(c, dto.ErrCodeNotFound, "Connectivity monitor is not running")
		return
	}
	success(c, http.StatusOK, s.deps.Monitor.Status())
}

func (s *Server) checkConnectivity(c *gin.Context) {
	if s.deps.Monitor == nil {
		fail(c, dto.ErrCodeNotFound, "Connectivity monitor is not running")
		return
	}
	s.deps.Monitor.Check(c.Request.Context())
	success(c, http.StatusOK, s.deps.Monitor.Status())
}

func (s *Server) putCache(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, dto.ErrCodeBadRequest, "Failed to read body")
		return
	}
	if !json.Valid(body) {
		fail(c, dto.ErrCodeInvalidJSON, "Cache value must be JSON")
		return
	}
	if err := s.deps.Queue.CacheData(c.Request.Context(), c.Param("key"), json.RawMessage(body)); err != nil {
		s.internal(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getCache(c *gin.Context) {
	var raw json.RawMessage
	if err := s.deps.Queue.GetCachedData(c.Request.Context(), c.Param("key"), &raw); err != nil {
		if errors.Is(err, offline.ErrCacheMiss) {
			fail(c, dto.ErrCodeNotFound, "No cached value for "+c.Param("key"))
			return
		}
		s.internal(c, err)
		return
	}
	success(c, http.StatusOK, raw)
}

func (s *Server) deleteCache(c *gin.Context) {
	if err := s.deps.Queue.DeleteCachedData(c.Request.Context(), c.Param("key")); err != nil {
		s.internal(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StockCheckRequest is the body of POST /stock-check
type StockCheckRequest struct {
	Lines []appoffline.StockLine `json:"lines" binding:"required,min=1,dive"`
}

func (s *Server) stockCheck(c *gin.Context) {
	if s.deps.Stock == nil {
		fail(c, dto.ErrCodeNotFound, "Stock check is not available")
		return
	}
	var req StockCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	for _, l := range req.Lines {
		if !l.Quantity.IsPositive() {
			fail(c, dto.ErrCodeValidation, "Quantity for product "+l.ProductID.String()+" must be positive")
			return
		}
	}
	result, err := s.deps.Stock.Check(c.Request.Context(), req.Lines)
	if err != nil {
		if errors.Is(err, appoffline.ErrNoCachedProducts) {
			fail(c, "PRODUCTS_NOT_CACHED", "Cache the product list before checking stock")
			return
		}
		s.internal(c, err)
		return
	}
	success(c, http.StatusOK, result)
}

func (s *Server) metrics(c *gin.Context) {
	if err := s.deps.Metrics.RefreshQueue(c.Request.Context(), s.deps.Queue); err != nil {
		logger.FromContext(c.Request.Context()).Warn("failed to refresh queue gauges", zap.Error(err))
	}
	s.deps.Metrics.Handler().ServeHTTP(c.Writer, c.Request)
}
