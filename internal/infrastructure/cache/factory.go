package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/distribuidora/backend/internal/domain/logistics"
	"github.com/distribuidora/backend/internal/domain/shared"
	"github.com/distribuidora/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backends holds the Redis-backed stores, or their in-memory fallbacks when
// Redis is disabled or unreachable
type Backends struct {
	Client      redis.UniversalClient // nil when running on fallbacks
	Idempotency shared.IdempotencyStore
	RoutePaths  logistics.PathCache
}

// FactoryOption configures Connect
type FactoryOption func(*factory)

type factory struct {
	logger        *zap.Logger
	allowFallback bool
	pingTimeout   time.Duration
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *factory) { f.logger = logger }
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to
// in-memory stores. Default true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *factory) { f.allowFallback = allow }
}

// Connect opens the shared Redis client and builds the stores on it
func Connect(ctx context.Context, cfg config.RedisConfig, opts ...FactoryOption) (*Backends, error) {
	f := &factory{logger: zap.NewNop(), allowFallback: true, pingTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(f)
	}

	if !cfg.Enabled {
		f.logger.Info("redis disabled, using in-memory stores")
		return inMemoryBackends(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 3,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, f.pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		if !f.allowFallback {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		f.logger.Warn("redis unavailable, falling back to in-memory stores; "+
			"idempotency keys are not shared between instances",
			zap.String("addr", cfg.Addr()),
			zap.Error(err),
		)
		return inMemoryBackends(), nil
	}

	f.logger.Info("connected to redis", zap.String("addr", cfg.Addr()))
	return &Backends{
		Client:      client,
		Idempotency: NewRedisIdempotencyStore(client, ""),
		RoutePaths:  NewRedisRoutePathCache(client),
	}, nil
}

func inMemoryBackends() *Backends {
	return &Backends{
		Idempotency: NewInMemoryIdempotencyStore(),
		RoutePaths:  NewInMemoryRoutePathCache(),
	}
}

// Close releases the client or stops the in-memory sweepers
func (b *Backends) Close() error {
	if b.Client != nil {
		return b.Client.Close()
	}
	_ = b.Idempotency.Close()
	if c, ok := b.RoutePaths.(*InMemoryRoutePathCache); ok {
		_ = c.Close()
	}
	return nil
}
