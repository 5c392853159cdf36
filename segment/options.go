package segment

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/metrics"
)

// Option 分配器选项
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
	tracer trace.TracerProvider
	now    func() time.Time
}

// WithLogger 设置日志记录器
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("segment")
		}
	}
}

// WithMeter 设置指标
func WithMeter(m metrics.Meter) Option {
	return func(o *options) {
		if m != nil {
			o.meter = m
		}
	}
}

// WithTracerProvider 设置补充号段时使用的 TracerProvider，默认取全局
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracer = tp
		}
	}
}

// WithClock 替换步长调整使用的时钟
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func applyOptions(opts []Option) *options {
	o := &options{
		logger: clog.Discard(),
		meter:  metrics.Discard(),
		tracer: otel.GetTracerProvider(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
