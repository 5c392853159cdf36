package store

import (
	"time"

	"github.com/ceyewan/leaf/clog"
)

// Option store 选项
type Option func(*options)

type options struct {
	logger clog.Logger
	now    func() time.Time
}

// WithLogger 设置日志记录器，内部追加 namespace "store"
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("store")
		}
	}
}

// WithClock 替换写入 update_time 使用的时钟
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
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
