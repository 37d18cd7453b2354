package middleware

import (
	"bytes"
	"log/slog"
	"strings"
	"time"

	"face-attend-system/internal/global/logger"

	"github.com/gin-gonic/gin"
)

// maxResponseLogSize 日志中记录的响应体最大大小（10KB）
const maxResponseLogSize = 10 * 1024

// responseBodyWriter 包装 gin.ResponseWriter 以捕获响应体内容
type responseBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseBodyWriter) Write(b []byte) (int, error) {
	if remaining := maxResponseLogSize - w.body.Len(); remaining > 0 {
		if len(b) <= remaining {
			w.body.Write(b)
		} else {
			w.body.Write(b[:remaining])
		}
	}
	return w.ResponseWriter.Write(b)
}

// Logger 记录请求日志，JSON 响应体截断后一并记录，文件下载只记录大小
func Logger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		blw := &responseBodyWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = blw

		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"size", c.Writer.Size(),
		}
		if strings.HasPrefix(c.Writer.Header().Get("Content-Type"), "application/json") {
			body := blw.body.String()
			if c.Writer.Size() > maxResponseLogSize {
				body += "...(truncated)"
			}
			attrs = append(attrs, "response_body", body)
		}

		l := logger.WithContext(log, c)
		switch {
		case c.Writer.Status() >= 500:
			l.Error("HTTP Request", attrs...)
		case c.Writer.Status() >= 400:
			l.Warn("HTTP Request", attrs...)
		default:
			l.Info("HTTP Request", attrs...)
		}
	}
}
