package cache

import (
	"fmt"

	"github.com/shoplink/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// StatusCacheFactory creates status caches based on configuration
type StatusCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StatusCacheFactoryOption is a functional option for configuring the factory
type StatusCacheFactoryOption func(*StatusCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StatusCacheFactoryOption {
	return func(f *StatusCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory cache
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) StatusCacheFactoryOption {
	return func(f *StatusCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStatusCacheFactory creates a new factory
func NewStatusCacheFactory(cfg config.RedisConfig, opts ...StatusCacheFactoryOption) *StatusCacheFactory {
	f := &StatusCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateCache tries Redis first and falls back to the in-memory cache when
// Redis is unavailable and fallback is allowed
func (f *StatusCacheFactory) CreateCache() (StatusCache, error) {
	cache, err := NewRedisStatusCache(f.redisConfig)
	if err == nil {
		f.logger.Info("using Redis sync status cache")
		return cache, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for sync status cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory sync status cache. "+
		"Status queries will not be shared across instances.",
		zap.Error(err),
	)
	return NewInMemoryStatusCache(), nil
}
