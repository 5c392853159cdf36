package server

import (
	"time"

	"github.com/ceyewan/leaf/ratelimit"
	"github.com/ceyewan/leaf/xerrors"
)

// Config HTTP 与 gRPC 服务配置
//
//	server:
//	  http_addr: ":8080"
//	  grpc_addr: ":9090"   # 为空时不启动 gRPC 健康检查服务
//	  mode: release
//	  ratelimit:
//	    enabled: true
//	    rate: 2000
//	    burst: 4000
type Config struct {
	ServiceName string `mapstructure:"service_name"`
	HTTPAddr    string `mapstructure:"http_addr"`
	GRPCAddr    string `mapstructure:"grpc_addr"`

	// Mode gin 运行模式：debug、release、test
	Mode string `mapstructure:"mode"`

	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	RateLimit ratelimit.Config `mapstructure:"ratelimit"`
}

func (c *Config) setDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "leaf"
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.Mode == "" {
		c.Mode = "release"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

func (c *Config) validate() error {
	switch c.Mode {
	case "debug", "release", "test":
	default:
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "server mode %q", c.Mode)
	}
	return nil
}
