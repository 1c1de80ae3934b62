package middleware

import (
	"net/http"
	"time"

	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/distribuidora/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IdempotencyHeader carries the client-chosen key of a mutation
const IdempotencyHeader = "Idempotency-Key"

const maxIdempotencyKeyLen = 200

// Idempotency rejects a repeated mutation with 409 DUPLICATE_REQUEST. Keys are
// scoped to the caller. A request that ends with an error status releases its
// key so the client may retry it. Requests without the header pass through.
func Idempotency(store shared.IdempotencyStore, ttl time.Duration, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" || !isMutation(c.Request.Method) {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			abort(c, dto.ErrCodeBadRequest, "Idempotency-Key is too long")
			return
		}

		scoped := "anon:" + key
		if actor, ok := GetActor(c); ok {
			scoped = actor.UserID.String() + ":" + key
		}

		ctx := c.Request.Context()
		fresh, err := store.MarkProcessed(ctx, scoped, ttl)
		if err != nil {
			// an unavailable store must not block writes
			log.Warn("idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !fresh {
			abort(c, dto.ErrCodeDuplicateRequest, "Request with this Idempotency-Key was already processed")
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			if err := store.Forget(ctx, scoped); err != nil {
				log.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(err))
			}
		}
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
