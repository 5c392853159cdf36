package testkit

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/ceyewan/leaf/connector"
)

// NewMySQLContainerConfig 启动 MySQL 8 容器并返回连接配置
func NewMySQLContainerConfig(t *testing.T) *connector.MySQLConfig {
	RequireDocker(t)
	ctx := context.Background()

	container, err := mysql.Run(ctx,
		"mysql:8.0",
		mysql.WithDatabase("leaf"),
		mysql.WithUsername("leaf"),
		mysql.WithPassword("leaf_password"),
	)
	require.NoError(t, err, "failed to start mysql container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, "3306")
	require.NoError(t, err)
	port, err := strconv.Atoi(mapped.Port())
	require.NoError(t, err)

	return &connector.MySQLConfig{
		Name:     "test-mysql",
		Host:     host,
		Port:     port,
		Username: "leaf",
		Password: "leaf_password",
		Database: "leaf",
		Pool:     connector.PoolConfig{MaxIdleConns: 2, MaxOpenConns: 10},
	}
}

// NewMySQLConnector 已连接的 MySQL 连接器
//
// 容器端口就绪后 mysqld 可能还在初始化，这里重试到 60s。
func NewMySQLConnector(t *testing.T) connector.DatabaseConnector {
	conn, err := connector.NewMySQL(NewMySQLContainerConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create mysql connector")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	for {
		if err = conn.Connect(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			require.NoError(t, err, "timeout waiting for mysql to be ready")
		case <-time.After(2 * time.Second):
		}
	}

	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
