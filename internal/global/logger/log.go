package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"face-attend-system/config"

	sentryslog "github.com/getsentry/sentry-go/slog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const appName = "face-attend-system"

var (
	instance *slog.Logger
	once     sync.Once
)

// fanoutHandler 将同一条日志分发给多个 handler
type fanoutHandler []slog.Handler

func (h fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h {
		if !handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := handler.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (h fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(h))
	for i, handler := range h {
		out[i] = handler.WithAttrs(attrs)
	}
	return out
}

func (h fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(h))
	for i, handler := range h {
		out[i] = handler.WithGroup(name)
	}
	return out
}

// output release 模式且配置了文件路径时写入轮转文件，否则写控制台
func output(cfg *config.Config) (w io.Writer, json bool) {
	if cfg.Mode == config.ModeRelease && cfg.Log.FilePath != "" {
		return &lumberjack.Logger{
			Filename:   cfg.Log.FilePath,
			MaxSize:    cfg.Log.MaxSize,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAge,
			Compress:   cfg.Log.Compress,
		}, true
	}
	return os.Stdout, false
}

// Get 获取全局 Logger 实例
func Get() *slog.Logger {
	once.Do(func() {
		cfg := config.Get()
		opts := &slog.HandlerOptions{
			AddSource: cfg.Mode == config.ModeRelease,
			Level:     getLogLevel(cfg.Log.Level),
		}

		var handler slog.Handler
		if w, json := output(cfg); json {
			handler = slog.NewJSONHandler(w, opts)
		} else {
			handler = slog.NewTextHandler(w, opts)
		}

		// 配置了 Sentry 时 Error 作为事件上报，Warn 及以上作为日志上报
		if cfg.Sentry.Dsn != "" {
			sentryHandler := sentryslog.Option{
				EventLevel: []slog.Level{slog.LevelError},
				LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelError},
				AddSource:  cfg.Mode == config.ModeRelease,
			}.NewSentryHandler(context.Background())
			handler = fanoutHandler{handler, sentryHandler}
		}

		instance = slog.New(handler).With(
			"app_name", appName,
			"env", string(cfg.Mode),
		)
	})
	return instance
}

// New 创建一个带模块字段的 Logger
func New(module string) *slog.Logger {
	return Get().With("module", module)
}

// RequestInfo 是 gin.Context 中 WithContext 用到的部分
type RequestInfo interface {
	ClientIP() string
	GetHeader(string) string
	GetString(string) string
}

// RequestIDKey gin.Context 中请求 ID 的键
const RequestIDKey = "request_id"

// WithContext 为 Logger 附加 client_ip、request_id 等请求信息
func WithContext(base *slog.Logger, c RequestInfo) *slog.Logger {
	l := base.With("client_ip", c.ClientIP())

	if id := c.GetString(RequestIDKey); id != "" {
		l = l.With("request_id", id)
	}
	if forwardedFor := c.GetHeader("X-Forwarded-For"); forwardedFor != "" {
		l = l.With("x_forwarded_for", forwardedFor)
	}
	return l
}

// getLogLevel 将字符串级别转换为 slog.Level
func getLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
