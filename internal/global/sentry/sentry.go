package sentry

import (
	"fmt"
	"time"

	"face-attend-system/config"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

const release = "face-attend-system@1.0.0"

// CodedError 带错误码的错误，用于判断是否需要上报
type CodedError interface {
	error
	GetCode() int32
}

func Enabled() bool {
	return config.Get().Sentry.Dsn != ""
}

// Init 初始化 Sentry SDK，未配置 DSN 时跳过
func Init() error {
	cfg := config.Get()
	if !Enabled() {
		return nil
	}

	tracesSampleRate := cfg.Sentry.SampleRate
	if tracesSampleRate <= 0 {
		tracesSampleRate = 1.0
	}
	environment := cfg.Sentry.Environment
	if environment == "" {
		environment = string(cfg.Mode)
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.Dsn,
		Environment:      environment,
		Release:          release,
		SampleRate:       1.0, // 错误事件不采样
		EnableTracing:    true,
		TracesSampleRate: tracesSampleRate,
		EnableLogs:       true,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			// 上传的照片不随事件上报
			if event.Request != nil {
				event.Request.Data = ""
			}
			return event
		},
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	return nil
}

// Middleware 返回 Sentry Gin 中间件，未启用时为空中间件
func Middleware() gin.HandlerFunc {
	if !Enabled() {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return sentrygin.New(sentrygin.Options{
		Repanic:         true, // 交给后续的 Recovery 处理
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// EnrichScope 将客户端 IP 与当前用户写入 Sentry Scope，需放在 Middleware 之后
func EnrichScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetUser(sentry.User{IPAddress: c.ClientIP()})
				scope.SetTag("client_ip", c.ClientIP())
				if realIP := c.GetHeader("X-Real-IP"); realIP != "" {
					scope.SetTag("x_real_ip", realIP)
				}
			})
		}
		c.Next()
	}
}

// CaptureException 上报服务器错误，业务错误（非 5xx）不上报
func CaptureException(c *gin.Context, err error) {
	if !Enabled() || !shouldReport(err) {
		return
	}

	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetRequest(c.Request)
			scope.SetTag("path", c.FullPath())
			scope.SetTag("method", c.Request.Method)
			if payload, exists := c.Get("payload"); exists {
				scope.SetUser(sentry.User{
					IPAddress: c.ClientIP(),
					Data:      map[string]string{"payload": fmt.Sprintf("%+v", payload)},
				})
			}
			hub.CaptureException(err)
		})
	}
}

func shouldReport(err error) bool {
	if e, ok := err.(CodedError); ok {
		code := e.GetCode()
		for code >= 1000 {
			code /= 10
		}
		return code >= 500 && code < 600
	}
	return true
}

// Flush 退出前调用，确保事件发送完毕
func Flush(timeout time.Duration) {
	if Enabled() {
		sentry.Flush(timeout)
	}
}
