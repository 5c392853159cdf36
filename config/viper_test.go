package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSegmentConfig struct {
	Enable        bool          `mapstructure:"enable"`
	Driver        string        `mapstructure:"driver"`
	RefreshPeriod time.Duration `mapstructure:"refresh_period"`
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoader_Load_Unit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "leaf.yaml"), `
segment:
  enable: true
  driver: mysql
  refresh_period: 60s
snowflake:
  name: com.example.leaf
`)
	writeFile(t, filepath.Join(dir, "leaf.test.yaml"), `
segment:
  driver: sqlite
`)

	t.Setenv("LEAFT_ENV", "test")
	t.Setenv("LEAFT_SNOWFLAKE_NAME", "from-env")

	l, err := New(WithConfigName("leaf"), WithConfigPaths(dir), WithEnvPrefix("leaft"))
	require.NoError(t, err)
	require.NoError(t, l.Load(context.Background()))

	var seg testSegmentConfig
	require.NoError(t, l.UnmarshalKey("segment", &seg))
	assert.True(t, seg.Enable)
	assert.Equal(t, "sqlite", seg.Driver, "environment file overrides base")
	assert.Equal(t, time.Minute, seg.RefreshPeriod)

	assert.Equal(t, "from-env", l.Get("snowflake.name"))
}

func TestLoader_MissingFile_Unit(t *testing.T) {
	dir := t.TempDir()

	l, err := New(WithConfigName("absent"), WithConfigPaths(dir))
	require.NoError(t, err)
	err = l.Load(context.Background())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	l, err = New(WithConfigName("absent"), WithConfigPaths(dir), WithAllowMissingFile())
	require.NoError(t, err)
	assert.NoError(t, l.Load(context.Background()))
}

func TestLoader_DotEnv_Unit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "leaf.yaml"), "log:\n  level: info\n")
	writeFile(t, filepath.Join(dir, ".env"), "LEAFD_LOG_LEVEL=debug\n")
	t.Cleanup(func() { _ = os.Unsetenv("LEAFD_LOG_LEVEL") })

	l, err := New(WithConfigName("leaf"), WithConfigPaths(dir), WithEnvPrefix("LEAFD"))
	require.NoError(t, err)
	require.NoError(t, l.Load(context.Background()))

	assert.Equal(t, "debug", l.Get("log.level"))
}

func TestLoader_Watch_Unit(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "leaf.yaml")
	writeFile(t, file, "log:\n  level: info\n")

	l, err := New(WithConfigName("leaf"), WithConfigPaths(dir), WithEnvPrefix("LEAFW"))
	require.NoError(t, err)
	require.NoError(t, l.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := l.Watch(ctx, "log.level")
	require.NoError(t, err)

	writeFile(t, file, "log:\n  level: warn\n")

	select {
	case ev := <-ch:
		assert.Equal(t, "log.level", ev.Key)
		assert.Equal(t, "warn", ev.Value)
		assert.Equal(t, "info", ev.OldValue)
	case <-time.After(5 * time.Second):
		t.Skip("file watcher did not fire in time on this platform")
	}

	_, err = l.Watch(ctx, "")
	assert.Error(t, err)
}
