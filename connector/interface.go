// Package connector 管理外部存储的连接生命周期：etcd、Redis 以及基于 GORM 的 MySQL/PostgreSQL/SQLite。
//
// 约定：
//   - NewXXX 只校验配置并构造客户端，Connect 才真正探活，可重复调用
//   - 谁创建谁 Close；store、coordinator 等组件只借用 Connector，不负责关闭
//   - HealthCheck 会刷新 IsHealthy 的缓存值，/readyz 直接读取缓存
//
// 基本使用：
//
//	conn, err := connector.NewEtcd(&connector.EtcdConfig{
//		Endpoints: []string{"127.0.0.1:2379"},
//	}, connector.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//	if err := conn.Connect(ctx); err != nil {
//		return err
//	}
//	cli := conn.GetClient()
package connector

import (
	"context"

	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
	"gorm.io/gorm"
)

// Connector 所有连接器的公共行为，方法均并发安全
type Connector interface {
	// Connect 建立连接并探活，幂等
	Connect(ctx context.Context) error
	// Close 释放底层连接，幂等
	Close() error
	// HealthCheck 主动探活并刷新缓存的健康状态
	HealthCheck(ctx context.Context) error
	// IsHealthy 返回最近一次探活的结果，不阻塞
	IsHealthy() bool
	Name() string
}

// TypedConnector 带类型化客户端的连接器
type TypedConnector[T any] interface {
	Connector
	// GetClient 在 Connect 之前或 Close 之后可能返回零值
	GetClient() T
}

// RedisConnector Redis 连接器
type RedisConnector interface {
	TypedConnector[*redis.Client]
}

// EtcdConnector etcd 连接器
type EtcdConnector interface {
	TypedConnector[*clientv3.Client]
}

// DatabaseConnector 基于 GORM 的关系型数据库连接器，MySQL/PostgreSQL/SQLite 共用
type DatabaseConnector interface {
	TypedConnector[*gorm.DB]
	// Driver 返回 "mysql"、"postgres" 或 "sqlite"
	Driver() string
}
