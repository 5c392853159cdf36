package testkit

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/ceyewan/leaf/connector"
)

// NewPostgreSQLContainerConfig 启动 PostgreSQL 容器并返回连接配置
func NewPostgreSQLContainerConfig(t *testing.T) *connector.PostgreSQLConfig {
	RequireDocker(t)
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:17-alpine",
		postgres.WithDatabase("leaf"),
		postgres.WithUsername("leaf"),
		postgres.WithPassword("leaf_password"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "failed to start postgresql container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	port, err := strconv.Atoi(mapped.Port())
	require.NoError(t, err)

	return &connector.PostgreSQLConfig{
		Name:     "test-postgresql",
		Host:     host,
		Port:     port,
		Username: "leaf",
		Password: "leaf_password",
		Database: "leaf",
		Pool:     connector.PoolConfig{MaxIdleConns: 2, MaxOpenConns: 10},
	}
}

// NewPostgreSQLConnector 已连接的 PostgreSQL 连接器
func NewPostgreSQLConnector(t *testing.T) connector.DatabaseConnector {
	conn, err := connector.NewPostgreSQL(NewPostgreSQLContainerConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create postgresql connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to postgresql")
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
