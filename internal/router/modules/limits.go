package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-auth-portal/internal/interface/middleware"
)

// Limiter builds Redis-backed rate limits; without a client every limit is a no-op.
type Limiter struct {
	Redis *redis.Client
}

func (l Limiter) PerMinute(max int, key middleware.KeyFunc, allow middleware.AllowFunc) gin.HandlerFunc {
	return middleware.RateLimit(l.Redis, max, time.Minute, key, allow)
}
