package coordinator

import (
	"os"
	"time"

	"github.com/ceyewan/leaf/xerrors"
)

// Config worker ID 协调配置
//
//	snowflake:
//	  name: com.example.leaf
//	  port: 8080
//	  ip: ""           # 为空时探测本机地址
//	  cache_dir: ""    # 为空时使用系统临时目录
type Config struct {
	// Name 服务名，决定注册中心路径 /snowflake/{name}/forever
	Name string `mapstructure:"name"`

	// IP/Port 本实例的监听地址，ip:port 是节点身份
	IP   string `mapstructure:"ip"`
	Port int    `mapstructure:"port"`

	// CacheDir 本地 worker ID 缓存根目录
	CacheDir string `mapstructure:"cache_dir"`

	// RetryElapsed 访问注册中心的总重试时长，默认 1s
	RetryElapsed time.Duration `mapstructure:"retry_elapsed"`

	// HeartbeatDelay / HeartbeatInterval 首次心跳延迟与之后的间隔，默认 1s / 3s
	HeartbeatDelay    time.Duration `mapstructure:"heartbeat_delay"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

func (c *Config) setDefaults() {
	if c.CacheDir == "" {
		c.CacheDir = os.TempDir()
	}
	if c.RetryElapsed == 0 {
		c.RetryElapsed = time.Second
	}
	if c.HeartbeatDelay == 0 {
		c.HeartbeatDelay = time.Second
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 3 * time.Second
	}
}

func (c *Config) validate() error {
	switch {
	case c.Name == "":
		return xerrors.Wrap(xerrors.ErrInvalidInput, "snowflake name is required")
	case c.Port <= 0 || c.Port > 65535:
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "port %d out of range", c.Port)
	case c.RetryElapsed < 0 || c.HeartbeatDelay < 0 || c.HeartbeatInterval < 0:
		return xerrors.Wrap(xerrors.ErrInvalidInput, "retry and heartbeat durations must be positive")
	}
	return nil
}
