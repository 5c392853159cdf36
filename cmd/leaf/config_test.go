package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/leaf/config"
	"github.com/ceyewan/leaf/snowflake"
	"github.com/ceyewan/leaf/xerrors"
)

func TestAppConfig_Load_Unit(t *testing.T) {
	loader, err := config.New(config.WithConfigName("leaf"), config.WithConfigPaths("../../configs"),
		config.WithEnvPrefix("LEAFCMD"))
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))

	var cfg AppConfig
	require.NoError(t, loader.Unmarshal(&cfg))
	require.NoError(t, cfg.validate())

	assert.True(t, cfg.Segment.Enable)
	assert.Equal(t, DriverSQLite, cfg.Segment.Driver)
	require.Len(t, cfg.Segment.Tags, 1)
	assert.Equal(t, 2000, cfg.Segment.Tags[0].Step)
	assert.Equal(t, time.Minute, cfg.Segment.Allocator.RefreshInterval)
	assert.Equal(t, 0.9, cfg.Segment.Allocator.Watermark)
	assert.True(t, cfg.Segment.Breaker.Enabled)

	assert.Equal(t, "com.example.leaf", cfg.Snowflake.Coordinator.Name)
	assert.Equal(t, snowflake.DefaultEpoch, cfg.Snowflake.Generator.Epoch)
	assert.Equal(t, 5*time.Millisecond, cfg.Snowflake.Generator.RegressionThreshold)
	assert.Equal(t, []string{"127.0.0.1:2379"}, cfg.Snowflake.Etcd.Endpoints)
}

func TestAppConfig_Validate_Unit(t *testing.T) {
	cfg := &AppConfig{Segment: SegmentConfig{Enable: true, Driver: "oracle"}}
	assert.True(t, xerrors.Is(cfg.validate(), xerrors.ErrInvalidInput))

	cfg = &AppConfig{Snowflake: SnowflakeConfig{Enable: true}}
	cfg.Server.HTTPAddr = "0.0.0.0:8081"
	require.NoError(t, cfg.validate())
	assert.Equal(t, 8081, cfg.Snowflake.Coordinator.Port)

	cfg = &AppConfig{Snowflake: SnowflakeConfig{Enable: true}}
	cfg.Server.HTTPAddr = ":0"
	assert.Error(t, cfg.validate())
}
