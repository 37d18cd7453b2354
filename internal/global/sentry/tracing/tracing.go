// Package tracing 为 GORM、Redis 和 Resty 客户端接入 Sentry 性能追踪
package tracing

import (
	"context"

	"face-attend-system/config"

	"github.com/getsentry/sentry-go"
)

// IsEnabled 检查 Sentry 追踪是否已启用
func IsEnabled() bool {
	return config.Get().Sentry.Dsn != ""
}

// StartSpanFromContext 在 ctx 中的 transaction 下创建子 span，
// 未初始化 Sentry 时 span 不会被上报，调用方照常 Finish 即可
func StartSpanFromContext(ctx context.Context, operation, description string) *sentry.Span {
	return sentry.StartSpan(ctx, operation, sentry.WithDescription(description))
}
