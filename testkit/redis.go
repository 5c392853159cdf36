package testkit

import (
	"context"
	"fmt"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/ceyewan/leaf/connector"
)

// NewRedisContainerConfig 启动 Redis 容器并返回连接配置
func NewRedisContainerConfig(t *testing.T) *connector.RedisConfig {
	RequireDocker(t)
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return &connector.RedisConfig{
		Name: "test-redis",
		Addr: fmt.Sprintf("%s:%s", host, port.Port()),
	}
}

// NewRedisConnector 已连接的 Redis 连接器
func NewRedisConnector(t *testing.T) connector.RedisConnector {
	conn, err := connector.NewRedis(NewRedisContainerConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create redis connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to redis")
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// NewRedisClient 原生 Redis 客户端
func NewRedisClient(t *testing.T) *redis.Client {
	return NewRedisConnector(t).GetClient()
}
