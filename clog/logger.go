package clog

import "context"

// Logger 日志接口，提供结构化日志记录功能
//
// 每个级别都有带 Context 和不带 Context 的版本，带 Context 的版本
// 会自动提取配置的 Context 字段以及链路追踪信息。
//
// 创建子 Logger：
//
//	tagLogger := logger.With(clog.String("tag", "order"))
//	segLogger := logger.WithNamespace("segment")
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)
	FatalContext(ctx context.Context, msg string, fields ...Field)

	// With 创建一个带有预设字段的子 Logger
	With(fields ...Field) Logger

	// WithNamespace 追加命名空间，多级之间以 "." 连接
	WithNamespace(parts ...string) Logger

	// SetLevel 运行时调整日志级别，对同一 New 派生出的所有 Logger 生效
	SetLevel(level Level) error

	// Flush 同步缓冲区，文件输出时会 Sync 底层文件
	Flush()
}
