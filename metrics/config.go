package metrics

// Config 指标系统配置
//
//	metrics:
//	  enabled: true
//	  service_name: leaf
//	  port: 0        # 大于 0 时额外启动独立的抓取端口
//	  path: /metrics
type Config struct {
	// Enabled 为 false 时 New 返回 noop Meter
	Enabled bool `mapstructure:"enabled"`

	ServiceName string `mapstructure:"service_name"`
	Version     string `mapstructure:"version"`

	// Port 独立 Prometheus HTTP 端口，0 表示只通过 Handler() 挂载到业务 HTTP 服务
	Port int    `mapstructure:"port"`
	Path string `mapstructure:"path"`

	// Runtime 是否采集 Go 运行时指标（goroutine、GC、内存）
	Runtime bool `mapstructure:"runtime"`
}

// NewDevDefaultConfig 开发环境默认配置
func NewDevDefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Version:     "dev",
		Path:        "/metrics",
	}
}

func (c *Config) setDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "leaf"
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
}
