package httpclient

import (
	"time"

	"face-attend-system/internal/global/sentry/tracing"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 10 * time.Second

// New 创建带 Sentry 追踪的 Resty 客户端，timeout 为 0 时使用默认值
func New(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)

	if tracing.IsEnabled() {
		tracing.SetupRestyTracing(client)
	}
	return client
}
