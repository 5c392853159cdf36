// Package ratelimit 基于 golang.org/x/time/rate 的单机令牌桶限流
//
// 每个 key（默认客户端 IP）一个令牌桶，空闲超过 IdleTimeout 的桶会被定期清理：
//
//	limiter, _ := ratelimit.New(&ratelimit.Config{Rate: 1000, Burst: 2000}, ratelimit.WithLogger(logger))
//	defer limiter.Close()
//	r.Use(ratelimit.GinMiddleware(limiter, nil))
package ratelimit

import (
	"context"
	"time"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/xerrors"
)

// Limit 令牌桶规则
type Limit struct {
	Rate  float64 // 每秒生成的令牌数
	Burst int     // 桶容量
}

// Limiter 限流器
type Limiter interface {
	// Allow 尝试获取 1 个令牌，不阻塞
	Allow(ctx context.Context, key string) (bool, error)

	// AllowN 尝试获取 n 个令牌，不阻塞
	AllowN(ctx context.Context, key string, n int) (bool, error)

	Close() error
}

// Config 限流配置
//
//	ratelimit:
//	  enabled: true
//	  rate: 1000
//	  burst: 2000
type Config struct {
	Enabled bool    `mapstructure:"enabled"`
	Rate    float64 `mapstructure:"rate"`
	Burst   int     `mapstructure:"burst"`

	// CleanupInterval 清理空闲令牌桶的间隔，默认 1 分钟
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`

	// IdleTimeout 令牌桶空闲多久后被清理，默认 5 分钟
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

func (c *Config) setDefaults() {
	if c.CleanupInterval == 0 {
		c.CleanupInterval = time.Minute
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.Burst == 0 {
		c.Burst = int(c.Rate)
	}
}

func (c *Config) validate() error {
	if c.Rate <= 0 || c.Burst <= 0 {
		return xerrors.Wrapf(ErrInvalidLimit, "rate=%v burst=%d", c.Rate, c.Burst)
	}
	return nil
}

// New 创建单机限流器
func New(cfg *Config, opts ...Option) (Limiter, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	l, err := newStandalone(cfg, o)
	if err != nil {
		return nil, err
	}
	o.logger.Info("rate limiter created",
		clog.Float64("rate", cfg.Rate),
		clog.Int("burst", cfg.Burst),
		clog.Duration("idle_timeout", cfg.IdleTimeout))
	return l, nil
}
