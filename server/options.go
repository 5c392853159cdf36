package server

import (
	"context"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/metrics"
	"github.com/ceyewan/leaf/segment"
	"github.com/ceyewan/leaf/snowflake"
)

// Option 服务选项
type Option func(*options)

// Check 就绪检查，返回 nil 表示就绪
type Check func(ctx context.Context) error

type namedCheck struct {
	name string
	fn   Check
}

type options struct {
	logger    clog.Logger
	meter     metrics.Meter
	tracing   bool
	segment   *segment.Allocator
	snowflake *snowflake.Generator
	checks    []namedCheck
}

// WithLogger 设置日志记录器
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("server")
		}
	}
}

// WithMeter 设置指标，同时在 /metrics 暴露抓取端点
func WithMeter(m metrics.Meter) Option {
	return func(o *options) {
		if m != nil {
			o.meter = m
		}
	}
}

// WithTracing 挂载 otelgin 与 otelgrpc
func WithTracing() Option {
	return func(o *options) {
		o.tracing = true
	}
}

// WithSegment 启用号段模式
func WithSegment(a *segment.Allocator) Option {
	return func(o *options) {
		o.segment = a
	}
}

// WithSnowflake 启用雪花模式
func WithSnowflake(g *snowflake.Generator) Option {
	return func(o *options) {
		o.snowflake = g
	}
}

// WithReadinessCheck 追加 /readyz 与 gRPC 健康状态的检查项
func WithReadinessCheck(name string, fn Check) Option {
	return func(o *options) {
		if fn != nil {
			o.checks = append(o.checks, namedCheck{name: name, fn: fn})
		}
	}
}

func applyOptions(opts []Option) *options {
	o := &options{
		logger: clog.Discard(),
		meter:  metrics.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
