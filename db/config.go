package db

import (
	"time"

	"github.com/ceyewan/leaf/xerrors"
)

// Config DB 组件配置
type Config struct {
	// SlowThreshold 超过该耗时的 SQL 记为 slow sql，默认 200ms
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
	// LogSQL 为 true 时以 debug 级别输出每条 SQL
	LogSQL bool `mapstructure:"log_sql"`
}

func (c *Config) setDefaults() {
	if c.SlowThreshold == 0 {
		c.SlowThreshold = 200 * time.Millisecond
	}
}

func (c *Config) validate() error {
	if c.SlowThreshold < 0 {
		return xerrors.Wrapf(ErrInvalidConfig, "slow_threshold must be >= 0, got %v", c.SlowThreshold)
	}
	return nil
}
