package snowflake

import (
	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/metrics"
)

// Option 生成器选项
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
	clock  Clock
	seq    func() int64
}

// WithLogger 设置日志记录器
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("snowflake")
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

// WithClock 替换时钟
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithSequenceSeed 替换每毫秒起始序列号的随机源，返回值取低位 [0, 100)
func WithSequenceSeed(fn func() int64) Option {
	return func(o *options) {
		if fn != nil {
			o.seq = fn
		}
	}
}

func applyOptions(opts []Option) *options {
	o := &options{
		logger: clog.Discard(),
		meter:  metrics.Discard(),
		clock:  SystemClock(),
		seq:    randomSeed,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
