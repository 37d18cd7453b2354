package tracing

import (
	"time"

	"face-attend-system/config"

	"github.com/getsentry/sentry-go"
	"gorm.io/gorm"
)

const (
	gormSpanKey    = "sentry:span"
	gormStartKey   = "sentry:start"
	callbackPrefix = "sentry_tracing"
)

// GormTracingPlugin 实现 gorm.Plugin，为每次数据库操作创建 span
type GormTracingPlugin struct {
	// 慢查询阈值，低于阈值的 span 不上报，0 表示全部上报
	slowThreshold time.Duration
}

func NewGormTracingPlugin() *GormTracingPlugin {
	ms := config.Get().Sentry.Tracing.DBSlowThresholdMs
	return &GormTracingPlugin{slowThreshold: time.Duration(ms) * time.Millisecond}
}

func (p *GormTracingPlugin) Name() string {
	return "SentryTracingPlugin"
}

func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op     string
		name   string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"db.sql.create", "create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"db.sql.query", "query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"db.sql.update", "update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"db.sql.delete", "delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"db.sql.row", "row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"db.sql.raw", "raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		if err := h.before(callbackPrefix+":before_"+h.name, p.before(h.op)); err != nil {
			return err
		}
		if err := h.after(callbackPrefix+":after_"+h.name, p.after); err != nil {
			return err
		}
	}
	return nil
}

func (p *GormTracingPlugin) before(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if db.Statement == nil || db.Statement.Context == nil {
			return
		}
		db.InstanceSet(gormStartKey, time.Now())

		parent := sentry.SpanFromContext(db.Statement.Context)
		if parent == nil {
			return
		}
		span := parent.StartChild(operation)
		// 只记录表名，完整 SQL 可能包含敏感数据
		span.Description = db.Statement.Table
		span.SetData("db.system", db.Dialector.Name())

		db.InstanceSet(gormSpanKey, span)
		db.Statement.Context = span.Context()
	}
}

func (p *GormTracingPlugin) after(db *gorm.DB) {
	if db.Statement == nil {
		return
	}
	startVal, ok := db.InstanceGet(gormStartKey)
	if !ok {
		return
	}
	start, _ := startVal.(time.Time)
	spanVal, ok := db.InstanceGet(gormSpanKey)
	if !ok {
		return
	}
	span, ok := spanVal.(*sentry.Span)
	if !ok || span == nil {
		return
	}

	if p.slowThreshold > 0 && time.Since(start) < p.slowThreshold {
		span.Sampled = sentry.SampledFalse
	}
	span.SetData("db.rows_affected", db.RowsAffected)
	if db.Error != nil {
		span.Status = sentry.SpanStatusInternalError
		span.SetData("db.error", db.Error.Error())
	} else {
		span.Status = sentry.SpanStatusOK
	}
	span.Finish()
}
