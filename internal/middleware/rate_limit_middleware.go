package middleware

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// RateLimiter throttles requests per client using Redis counters. On Redis
// failure it fails open: availability over strictness for a community site.
type RateLimiter struct {
	redisClient redis.UniversalClient
}

func NewRateLimiter(redisClient redis.UniversalClient) *RateLimiter {
	return &RateLimiter{redisClient: redisClient}
}

// LimitByIP throttles by client IP, for unauthenticated endpoints (login,
// register, confirmation resend).
func (rl *RateLimiter) LimitByIP(name string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rl:%s:ip:%s", name, c.ClientIP())
		rl.limit(c, key, maxRequests, window)
	}
}

// LimitByUser throttles by authenticated member, falling back to IP when the
// request carries no session.
func (rl *RateLimiter) LimitByUser(name string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var key string
		if userID, ok := c.Get(ContextUserID); ok {
			key = fmt.Sprintf("rl:%s:user:%v", name, userID)
		} else {
			key = fmt.Sprintf("rl:%s:ip:%s", name, c.ClientIP())
		}
		rl.limit(c, key, maxRequests, window)
	}
}

func (rl *RateLimiter) limit(c *gin.Context, key string, maxRequests int, window time.Duration) {
	ctx := c.Request.Context()

	count, err := rl.redisClient.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("[RateLimiter] Redis INCR failed for key=%s: %v", key, err)
		c.Next()
		return
	}
	if count == 1 {
		if err := rl.redisClient.Expire(ctx, key, window).Err(); err != nil {
			log.Printf("[RateLimiter] Redis EXPIRE failed for key=%s: %v", key, err)
		}
	}

	if count > int64(maxRequests) {
		ttl, _ := rl.redisClient.TTL(ctx, key).Result()
		c.Header("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": "rate_limit_exceeded",
		})
		return
	}

	c.Next()
}
