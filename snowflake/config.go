package snowflake

import (
	"time"

	"github.com/ceyewan/leaf/xerrors"
)

// DefaultEpoch 2010-11-04T01:42:54.657Z
const DefaultEpoch int64 = 1288834974657

// Config 雪花生成器配置
type Config struct {
	// Epoch 起始时间（Unix 毫秒），默认 DefaultEpoch
	Epoch int64 `mapstructure:"epoch"`

	// RegressionThreshold 可等待的最大时钟回拨，超过直接报错，默认 5ms
	RegressionThreshold time.Duration `mapstructure:"regression_threshold"`

	// WrapBudget 同一毫秒序列号用尽后等待下一毫秒的上限，默认 100ms
	WrapBudget time.Duration `mapstructure:"wrap_budget"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	c := &Config{}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	if c.Epoch == 0 {
		c.Epoch = DefaultEpoch
	}
	if c.RegressionThreshold == 0 {
		c.RegressionThreshold = 5 * time.Millisecond
	}
	if c.WrapBudget == 0 {
		c.WrapBudget = 100 * time.Millisecond
	}
}

func (c *Config) validate(now int64) error {
	switch {
	case c.Epoch < 0 || c.Epoch > now:
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "epoch %d must be in [0, now]", c.Epoch)
	case c.RegressionThreshold < 0:
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "regression_threshold must be >= 0, got %v", c.RegressionThreshold)
	case c.WrapBudget < 0:
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "wrap_budget must be >= 0, got %v", c.WrapBudget)
	}
	return nil
}
