// Package clog 为 leaf 提供基于 slog 的结构化日志组件。
//
// 特性：
//   - 抽象 Logger 接口，不暴露底层 slog 实现
//   - 层级命名空间，组件通过 WithNamespace 派生子 Logger
//   - 文件输出基于 lumberjack 自动切割
//   - 支持从 Context 提取 request_id 以及 OTel 的 trace_id/span_id
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{Level: "info", Format: "json"})
//	logger.Info("allocator started", clog.Int("tags", 12))
//
// 组件内使用：
//
//	logger = logger.WithNamespace("segment")
//	logger.Warn("refill failed", clog.String("tag", tag), clog.Error(err))
package clog

import "fmt"

// New 创建一个新的 Logger 实例
//
// config 为 nil 时使用开发环境默认配置。
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = NewDevDefaultConfig("")
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return newLogger(config, applyOptions(opts...))
}

// MustNew 与 New 相同，失败时 panic，仅用于进程启动阶段。
func MustNew(config *Config, opts ...Option) Logger {
	logger, err := New(config, opts...)
	if err != nil {
		panic(err)
	}
	return logger
}
