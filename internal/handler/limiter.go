package handler

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// maxTrackedClients 超过该数量后清空限流表，避免内存无限增长。
const maxTrackedClients = 10000

// LoginLimiter 按客户端 IP 对登录类接口做令牌桶限流。
type LoginLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewLoginLimiter 创建每分钟允许 perMinute 次尝试的限流器。
func NewLoginLimiter(perMinute int) *LoginLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &LoginLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(float64(perMinute) / 60),
		burst:    perMinute,
	}
}

// Allow 判断来自 key 的请求是否仍在配额之内。
func (l *LoginLimiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// Middleware 在超出配额时直接返回 429。
func (l *LoginLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			respondError(c, http.StatusTooManyRequests, "尝试次数过多，请稍后再试")
			return
		}
		c.Next()
	}
}

func (l *LoginLimiter) get(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[key]
	l.mu.RUnlock()
	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, exists = l.limiters[key]; exists {
		return limiter
	}
	if len(l.limiters) >= maxTrackedClients {
		l.limiters = make(map[string]*rate.Limiter)
	}

	limiter = rate.NewLimiter(l.rate, l.burst)
	l.limiters[key] = limiter
	return limiter
}
