package middleware

import (
	"time"

	"face-attend-system/internal/global/cache"
	"face-attend-system/internal/global/logger"
	"face-attend-system/internal/global/response"

	"github.com/gin-gonic/gin"
)

// RateLimit 按客户端 IP 做固定窗口限流，perWindow <= 0 时不限制；
// 计数失败时放行
func RateLimit(name string, perWindow int, window time.Duration) gin.HandlerFunc {
	log := logger.New("RateLimit")
	return func(c *gin.Context) {
		if perWindow <= 0 {
			c.Next()
			return
		}
		n, err := cache.Default.Incr(c.Request.Context(), "ratelimit:"+name+":"+c.ClientIP(), window)
		if err != nil {
			logger.WithContext(log, c).Warn("限流计数失败", "error", err)
			c.Next()
			return
		}
		if n > int64(perWindow) {
			response.Fail(c, response.ErrTooManyRequests)
			c.Abort()
			return
		}
		c.Next()
	}
}
