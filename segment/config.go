package segment

import (
	"time"

	"github.com/ceyewan/leaf/xerrors"
)

// Config 号段分配器配置
type Config struct {
	// RefreshInterval 与 store 对齐 tag 列表的周期，默认 60s
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`

	// Workers / QueueSize 异步补充号段的 worker 数和任务队列长度，默认 8 / 256
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`

	// Watermark 当前号段剩余量低于 Watermark*step 时开始准备备用号段，默认 0.9
	Watermark float64 `mapstructure:"watermark"`

	// SpinLimit / ExhaustedWait 号段耗尽时等待在途补充的自旋次数与随后的一次睡眠，默认 10000 / 10ms
	SpinLimit     int           `mapstructure:"spin_limit"`
	ExhaustedWait time.Duration `mapstructure:"exhausted_wait"`

	// RefillTimeout 异步补充单次访问 store 的超时，默认 5s
	RefillTimeout time.Duration `mapstructure:"refill_timeout"`

	// SegmentDuration 步长调整的参考时长，默认 15m：
	// 两次补充间隔小于它则步长翻倍，大于两倍则减半
	SegmentDuration time.Duration `mapstructure:"segment_duration"`

	// MaxStep 步长上限，默认 1000000
	MaxStep int64 `mapstructure:"max_step"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	c := &Config{}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	if c.RefreshInterval == 0 {
		c.RefreshInterval = time.Minute
	}
	if c.Workers == 0 {
		c.Workers = 8
	}
	if c.QueueSize == 0 {
		c.QueueSize = 256
	}
	if c.Watermark == 0 {
		c.Watermark = 0.9
	}
	if c.SpinLimit == 0 {
		c.SpinLimit = 10000
	}
	if c.ExhaustedWait == 0 {
		c.ExhaustedWait = 10 * time.Millisecond
	}
	if c.RefillTimeout == 0 {
		c.RefillTimeout = 5 * time.Second
	}
	if c.SegmentDuration == 0 {
		c.SegmentDuration = 15 * time.Minute
	}
	if c.MaxStep == 0 {
		c.MaxStep = 1_000_000
	}
}

func (c *Config) validate() error {
	switch {
	case c.RefreshInterval < 0:
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "refresh_interval must be > 0, got %v", c.RefreshInterval)
	case c.Workers < 0 || c.QueueSize < 0:
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "workers and queue_size must be > 0, got %d/%d", c.Workers, c.QueueSize)
	case c.Watermark <= 0 || c.Watermark > 1:
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "watermark must be in (0, 1], got %v", c.Watermark)
	case c.SegmentDuration < 0 || c.MaxStep < 0:
		return xerrors.Wrap(xerrors.ErrInvalidInput, "segment_duration and max_step must be > 0")
	}
	return nil
}
