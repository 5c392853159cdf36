// Package config 提供基于 Viper 的配置加载能力。
//
// 特性：
//   - 多源加载：YAML 文件、环境特定文件（config.{env}.yaml）、.env 文件、环境变量
//   - 优先级：环境变量 > .env > 环境特定配置 > 基础配置
//   - 热更新：监听配置文件变化，按 key 推送变更事件
//
// 基本使用：
//
//	loader, err := config.New(
//		config.WithConfigName("leaf"),
//		config.WithConfigPaths("./configs"),
//		config.WithEnvPrefix("LEAF"),
//	)
//	if err := loader.Load(ctx); err != nil {
//		return err
//	}
//	var cfg AppConfig
//	_ = loader.Unmarshal(&cfg)
//
//	ch, _ := loader.Watch(ctx, "log.level")
//	for ev := range ch {
//		// ev.Value 为新值
//	}
package config

import (
	"context"
	"time"
)

// Loader 配置加载器
type Loader interface {
	// Load 从所有来源加载配置，并开始监听配置文件
	Load(ctx context.Context) error

	// Get 获取原始配置值
	Get(key string) any

	// Unmarshal 将整个配置反序列化到结构体（mapstructure 标签）
	Unmarshal(v any) error

	// UnmarshalKey 将指定 key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error

	// Watch 监听指定 key 的变化，ctx 取消后通道关闭
	Watch(ctx context.Context, key string) (<-chan Event, error)

	// Validate 校验已加载的配置
	Validate() error
}

// Event 配置变更事件
type Event struct {
	Key       string
	Value     any
	OldValue  any
	Source    string // "file"
	Timestamp time.Time
}

// New 创建配置加载器，不会立即读取文件
func New(opts ...Option) (Loader, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return newLoader(o), nil
}

// MustLoad 创建并加载配置，失败时 panic
func MustLoad(ctx context.Context, opts ...Option) Loader {
	l, err := New(opts...)
	if err != nil {
		panic(err)
	}
	if err := l.Load(ctx); err != nil {
		panic(err)
	}
	return l
}
