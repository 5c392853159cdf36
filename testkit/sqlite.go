package testkit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ceyewan/leaf/connector"
)

// NewSQLiteConfig 每个测试一个独立的数据库文件，位于 t.TempDir()
//
// 不使用 file::memory:?cache=shared，它在同一进程内所有连接间共享，
// 并行测试会互相看到对方的数据。
func NewSQLiteConfig(t *testing.T) *connector.SQLiteConfig {
	return &connector.SQLiteConfig{
		Name: "test-sqlite",
		Path: filepath.Join(t.TempDir(), "leaf.db"),
	}
}

// NewSQLiteConnector 已连接的 SQLite 连接器
func NewSQLiteConnector(t *testing.T) connector.DatabaseConnector {
	conn, err := connector.NewSQLite(NewSQLiteConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create sqlite connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to sqlite")
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
