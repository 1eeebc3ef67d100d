package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	"github.com/eventsite/cms/pkg/response"
)

const limiterPrefix = "cms:limiter"

// NewLimiterStore returns a redis-backed store shared across instances, or an in-process
// memory store when rdb is nil.
func NewLimiterStore(rdb *redis.Client) (limiter.Store, error) {
	if rdb == nil {
		return memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: limiterPrefix}), nil
	}
	store, err := sredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: limiterPrefix})
	if err != nil {
		return nil, fmt.Errorf("limiter redis store: %w", err)
	}
	return store, nil
}

// RateLimit limits requests per client IP. rate uses the limiter format, e.g. "10-M".
// Store failures let the request through.
func RateLimit(store limiter.Store, rate string, logger *zap.Logger) (gin.HandlerFunc, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("rate %q: %w", rate, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return ginlimiter.NewMiddleware(limiter.New(store, r),
		ginlimiter.WithLimitReachedHandler(func(c *gin.Context) {
			response.TooManyRequests(c, "Too many requests, please try again later")
		}),
		ginlimiter.WithErrorHandler(func(c *gin.Context, err error) {
			logger.Warn("rate limiter store", zap.Error(err))
			c.Next()
		}),
	), nil
}
