package tracing

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"face-attend-system/config"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
)

// RedisSentryHook 实现 redis.Hook，为命令与 pipeline 创建 span
type RedisSentryHook struct {
	slowThreshold time.Duration
}

func NewRedisSentryHook() *RedisSentryHook {
	ms := config.Get().Sentry.Tracing.RedisSlowThresholdMs
	return &RedisSentryHook{slowThreshold: time.Duration(ms) * time.Millisecond}
}

func (h *RedisSentryHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *RedisSentryHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		span, ctx := h.start(ctx, "db.redis", strings.ToUpper(cmd.Name()))
		start := time.Now()
		err := next(ctx, cmd)
		h.finish(span, start, err)
		return err
	}
}

func (h *RedisSentryHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		names := make([]string, 0, 3)
		for i, cmd := range cmds {
			if i == 3 {
				names = append(names, "...")
				break
			}
			names = append(names, strings.ToUpper(cmd.Name()))
		}
		span, ctx := h.start(ctx, "db.redis.pipeline", "PIPELINE: "+strings.Join(names, ", "))
		if span != nil {
			span.SetData("redis.pipeline_length", len(cmds))
		}
		start := time.Now()
		err := next(ctx, cmds)
		h.finish(span, start, err)
		return err
	}
}

func (h *RedisSentryHook) start(ctx context.Context, op, desc string) (*sentry.Span, context.Context) {
	parent := sentry.SpanFromContext(ctx)
	if parent == nil {
		return nil, ctx
	}
	span := parent.StartChild(op)
	span.Description = desc
	span.SetData("db.system", "redis")
	return span, span.Context()
}

func (h *RedisSentryHook) finish(span *sentry.Span, start time.Time, err error) {
	if span == nil {
		return
	}
	if h.slowThreshold > 0 && time.Since(start) < h.slowThreshold {
		span.Sampled = sentry.SampledFalse
	}
	// redis.Nil 表示 key 不存在，不算错误
	if err != nil && !errors.Is(err, redis.Nil) {
		span.Status = sentry.SpanStatusInternalError
		span.SetData("redis.error", err.Error())
	} else {
		span.Status = sentry.SpanStatusOK
	}
	span.Finish()
}
