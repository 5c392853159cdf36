package clog

import (
	"fmt"
	"strings"
)

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// Config 日志配置
//
// 示例（YAML）：
//
//	log:
//	  level: info
//	  format: json
//	  output: /var/log/leaf/leaf.log
//	  rotation:
//	    max_size_mb: 100
//	    max_backups: 7
type Config struct {
	Level      string `json:"level" yaml:"level" mapstructure:"level"`                   // debug|info|warn|error|fatal
	Format     string `json:"format" yaml:"format" mapstructure:"format"`                // json|console
	Output     string `json:"output" yaml:"output" mapstructure:"output"`                // stdout|stderr|<file path>
	AddSource  bool   `json:"add_source" yaml:"add_source" mapstructure:"add_source"`    // 输出调用位置
	SourceRoot string `json:"source_root" yaml:"source_root" mapstructure:"source_root"` // 裁剪调用位置的路径前缀

	// Rotation 仅在 Output 为文件路径时生效
	Rotation RotationConfig `json:"rotation" yaml:"rotation" mapstructure:"rotation"`
}

// RotationConfig 文件切割配置，对应 lumberjack.Logger 的同名字段
type RotationConfig struct {
	MaxSizeMB  int  `json:"max_size_mb" yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `json:"max_backups" yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `json:"max_age_days" yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `json:"compress" yaml:"compress" mapstructure:"compress"`
}

// NewDevDefaultConfig 开发环境默认配置：console 格式、debug 级别、带调用位置
func NewDevDefaultConfig(sourceRoot string) *Config {
	return &Config{
		Level:      "debug",
		Format:     "console",
		Output:     "stdout",
		AddSource:  true,
		SourceRoot: sourceRoot,
	}
}

// NewProdDefaultConfig 生产环境默认配置：json 格式、info 级别
func NewProdDefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}
}

func (c *Config) setDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
	if c.Rotation.MaxSizeMB <= 0 {
		c.Rotation.MaxSizeMB = 100
	}
	if c.Rotation.MaxBackups <= 0 {
		c.Rotation.MaxBackups = 7
	}
	if c.Rotation.MaxAgeDays <= 0 {
		c.Rotation.MaxAgeDays = 30
	}
}

func (c *Config) validate() error {
	c.setDefaults()

	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	format := strings.ToLower(c.Format)
	if format != "json" && format != "console" {
		return fmt.Errorf("invalid format: %s, must be json or console", c.Format)
	}
	return nil
}
