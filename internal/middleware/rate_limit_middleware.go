package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// RateLimitConfig содержит настройки rate limiting
type RateLimitConfig struct {
	// MaxRequests - максимальное количество запросов за Window
	MaxRequests int
	// Window - временное окно для подсчета запросов
	Window time.Duration
	// KeyPrefix - префикс для ключей в Redis
	KeyPrefix string
}

// AuthRateLimitConfig - лимит для входа через провайдера
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 10,
		Window:      1 * time.Minute,
		KeyPrefix:   "rl:auth",
	}
}

// PaymentRateLimitConfig - лимит на создание и подтверждение заказов
func PaymentRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 20,
		Window:      1 * time.Minute,
		KeyPrefix:   "rl:payment",
	}
}

// AnswerRateLimitConfig - лимит на ответы в прохождении
func AnswerRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 120,
		Window:      1 * time.Minute,
		KeyPrefix:   "rl:answer",
	}
}

// RateLimiter создает middleware для rate limiting на основе Redis (фиксированное окно)
type RateLimiter struct {
	redisClient redis.UniversalClient
}

// NewRateLimiter создает новый RateLimiter
func NewRateLimiter(redisClient redis.UniversalClient) *RateLimiter {
	return &RateLimiter{redisClient: redisClient}
}

// LimitByIP ограничивает запросы по IP и маршруту
func (rl *RateLimiter) LimitByIP(cfg RateLimitConfig) gin.HandlerFunc {
	return rl.limit(cfg, func(c *gin.Context) string {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		return c.ClientIP() + ":" + path
	})
}

// LimitByUser ограничивает запросы аутентифицированного пользователя. Применяется после RequireAuth.
func (rl *RateLimiter) LimitByUser(cfg RateLimitConfig) gin.HandlerFunc {
	return rl.limit(cfg, func(c *gin.Context) string {
		if userID := c.GetString(ContextUserID); userID != "" {
			return "user:" + userID
		}
		return "ip:" + c.ClientIP()
	})
}

func (rl *RateLimiter) limit(cfg RateLimitConfig, keyFn func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", cfg.KeyPrefix, keyFn(c))

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, err := rl.redisClient.Incr(ctx, key).Result()
		if err != nil {
			// При ошибке Redis пропускаем запрос (fail-open)
			log.Warnf("[RateLimiter] Redis error for key %s: %v. Allowing request", key, err)
			c.Next()
			return
		}

		// Первый запрос в окне выставляет TTL
		if count == 1 {
			if err := rl.redisClient.Expire(ctx, key, cfg.Window).Err(); err != nil {
				log.Warnf("[RateLimiter] Failed to set TTL for key %s: %v", key, err)
			}
		}

		remaining := cfg.MaxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		ttl, _ := rl.redisClient.TTL(ctx, key).Result()
		retryAfter := int(ttl.Seconds())
		if retryAfter < 0 {
			retryAfter = int(cfg.Window.Seconds())
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", retryAfter))

		if int(count) > cfg.MaxRequests {
			log.WithFields(log.Fields{"key": key, "count": count, "limit": cfg.MaxRequests}).
				Warn("[RateLimiter] Rate limit exceeded")
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Please try again later.",
				"error_type":  "rate_limited",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
