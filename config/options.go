package config

import (
	"strings"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/xerrors"
)

// Option 配置加载器选项
type Option func(*options)

type options struct {
	name      string   // 配置文件名称（不含扩展名）
	paths     []string // 搜索路径
	fileType  string   // yaml, json ...
	envPrefix string   // 环境变量前缀
	allowMiss bool     // 允许没有配置文件（完全依赖环境变量）
	logger    clog.Logger
}

func defaultOptions() *options {
	return &options{
		name:      "config",
		paths:     []string{".", "./config", "./configs"},
		fileType:  "yaml",
		envPrefix: "LEAF",
		logger:    clog.Discard(),
	}
}

func (o *options) validate() error {
	if o.name == "" {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "config name is empty")
	}
	if len(o.paths) == 0 {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "config paths are empty")
	}
	o.envPrefix = strings.ToUpper(o.envPrefix)
	return nil
}

// WithConfigName 设置配置文件名称（不带扩展名）
func WithConfigName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithConfigPaths 设置配置文件搜索路径（覆盖默认值）
func WithConfigPaths(paths ...string) Option {
	return func(o *options) {
		o.paths = paths
	}
}

// WithConfigType 设置配置文件类型
func WithConfigType(typ string) Option {
	return func(o *options) {
		o.fileType = typ
	}
}

// WithEnvPrefix 设置环境变量前缀，默认 LEAF
func WithEnvPrefix(prefix string) Option {
	return func(o *options) {
		o.envPrefix = prefix
	}
}

// WithAllowMissingFile 配置文件不存在时不报错
func WithAllowMissingFile() Option {
	return func(o *options) {
		o.allowMiss = true
	}
}

// WithLogger 注入日志记录器
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("config")
		}
	}
}
