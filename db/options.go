package db

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/leaf/clog"
)

// Option DB 选项
type Option func(*options)

type options struct {
	logger clog.Logger
	tracer trace.TracerProvider
}

// WithLogger 注入日志记录器
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("db")
		}
	}
}

// WithTracer 挂载 otelgorm，每条 SQL 生成一个 span
func WithTracer(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracer = tp
	}
}
