package connector_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/leaf/connector"
	"github.com/ceyewan/leaf/testkit"
)

func TestEtcdConnector_Integration(t *testing.T) {
	conn := testkit.NewEtcdConnector(t)
	ctx := testkit.NewContext(t, 30*time.Second)

	assert.True(t, conn.IsHealthy())
	key := "/leaf/test/" + testkit.NewID()
	_, err := conn.GetClient().Put(ctx, key, "v")
	require.NoError(t, err)

	resp, err := conn.GetClient().Get(ctx, key, clientv3.WithCountOnly())
	require.NoError(t, err)
	assert.EqualValues(t, 1, resp.Count)
	require.NoError(t, conn.HealthCheck(ctx))
}

func TestRedisConnector_Integration(t *testing.T) {
	cfg := testkit.NewRedisContainerConfig(t)
	conn, err := connector.NewRedis(cfg, connector.WithLogger(testkit.NewLogger()), connector.WithTracing())
	require.NoError(t, err)
	defer conn.Close()

	ctx := context.Background()
	require.NoError(t, conn.Connect(ctx))
	require.NoError(t, conn.GetClient().Set(ctx, "leaf:"+testkit.NewID(), "v", 0).Err())
	require.NoError(t, conn.HealthCheck(ctx))
}

func TestMySQLConnector_Integration(t *testing.T) {
	conn := testkit.NewMySQLConnector(t)
	assert.Equal(t, "mysql", conn.Driver())

	var version string
	require.NoError(t, conn.GetClient().Raw("SELECT VERSION()").Scan(&version).Error)
	assert.NotEmpty(t, version)
}

func TestPostgreSQLConnector_Integration(t *testing.T) {
	conn := testkit.NewPostgreSQLConnector(t)
	assert.Equal(t, "postgres", conn.Driver())
	require.NoError(t, conn.HealthCheck(context.Background()))
}
