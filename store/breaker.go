package store

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/segment"
	"github.com/ceyewan/leaf/xerrors"
)

// BreakerConfig 号段申请熔断配置
//
//	breaker:
//	  enabled: true
//	  max_requests: 1
//	  interval: 60s
//	  timeout: 5s
//	  failure_ratio: 0.6
//	  minimum_requests: 5
type BreakerConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// MaxRequests 半开状态允许通过的请求数
	MaxRequests uint32 `mapstructure:"max_requests"`

	// Interval 闭合状态下清空计数的周期，0 表示不清空
	Interval time.Duration `mapstructure:"interval"`

	// Timeout 打开状态持续多久后进入半开
	Timeout time.Duration `mapstructure:"timeout"`

	FailureRatio    float64 `mapstructure:"failure_ratio"`
	MinimumRequests uint32  `mapstructure:"minimum_requests"`
}

func (c *BreakerConfig) setDefaults() {
	if c.MaxRequests == 0 {
		c.MaxRequests = 1
	}
	if c.Interval == 0 {
		c.Interval = time.Minute
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	if c.FailureRatio == 0 {
		c.FailureRatio = 0.6
	}
	if c.MinimumRequests == 0 {
		c.MinimumRequests = 5
	}
}

func (c *BreakerConfig) validate() error {
	if c.FailureRatio <= 0 || c.FailureRatio > 1 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "breaker failure_ratio %v out of (0,1]", c.FailureRatio)
	}
	return nil
}

// breakerStore 号段申请走熔断器，数据库不可用时补充号段快速失败
type breakerStore struct {
	segment.Store
	cb     *gobreaker.CircuitBreaker[segment.Allocation]
	cfg    *BreakerConfig
	logger clog.Logger
}

// WithBreaker 为 BumpAndFetch 与 BumpByAndFetch 加上熔断保护
//
// cfg 为 nil 或未启用时原样返回 s。ErrTagNotFound 与调用方取消不计入失败。
func WithBreaker(s segment.Store, cfg *BreakerConfig, opts ...Option) (segment.Store, error) {
	if s == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "store is nil")
	}
	if cfg == nil || !cfg.Enabled {
		return s, nil
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	bs := &breakerStore{Store: s, cfg: cfg, logger: o.logger}
	bs.cb = gobreaker.NewCircuitBreaker[segment.Allocation](gobreaker.Settings{
		Name:          "segment-store",
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   bs.readyToTrip,
		OnStateChange: bs.onStateChange,
		IsSuccessful:  isSuccessful,
	})

	o.logger.Info("store circuit breaker created",
		clog.Int("max_requests", int(cfg.MaxRequests)),
		clog.Duration("timeout", cfg.Timeout),
		clog.Float64("failure_ratio", cfg.FailureRatio),
		clog.Int("minimum_requests", int(cfg.MinimumRequests)))
	return bs, nil
}

func (s *breakerStore) BumpAndFetch(ctx context.Context, tag string) (segment.Allocation, error) {
	return s.execute(func() (segment.Allocation, error) {
		return s.Store.BumpAndFetch(ctx, tag)
	})
}

func (s *breakerStore) BumpByAndFetch(ctx context.Context, tag string, step int64) (segment.Allocation, error) {
	return s.execute(func() (segment.Allocation, error) {
		return s.Store.BumpByAndFetch(ctx, tag, step)
	})
}

func (s *breakerStore) execute(fn func() (segment.Allocation, error)) (segment.Allocation, error) {
	alloc, err := s.cb.Execute(fn)
	if xerrors.Is(err, gobreaker.ErrOpenState) || xerrors.Is(err, gobreaker.ErrTooManyRequests) {
		return segment.Allocation{}, xerrors.Wrap(ErrOpenState, err.Error())
	}
	return alloc, err
}

// State 当前熔断器状态："closed"、"half-open" 或 "open"
func (s *breakerStore) State() string {
	return s.cb.State().String()
}

func (s *breakerStore) readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < s.cfg.MinimumRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= s.cfg.FailureRatio
}

func (s *breakerStore) onStateChange(name string, from, to gobreaker.State) {
	s.logger.Warn("circuit breaker state changed",
		clog.String("breaker", name),
		clog.String("from", from.String()),
		clog.String("to", to.String()))
}

func isSuccessful(err error) bool {
	return err == nil ||
		xerrors.Is(err, ErrTagNotFound) ||
		xerrors.Is(err, ErrInvalidStep) ||
		xerrors.Is(err, context.Canceled)
}
