package main

import (
	"net"
	"strconv"
	"time"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/connector"
	"github.com/ceyewan/leaf/coordinator"
	"github.com/ceyewan/leaf/db"
	"github.com/ceyewan/leaf/metrics"
	"github.com/ceyewan/leaf/segment"
	"github.com/ceyewan/leaf/server"
	"github.com/ceyewan/leaf/snowflake"
	"github.com/ceyewan/leaf/store"
	"github.com/ceyewan/leaf/trace"
	"github.com/ceyewan/leaf/xerrors"
)

// 号段存储驱动
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
)

// AppConfig configs/leaf.yaml 的完整结构
type AppConfig struct {
	Log       clog.Config     `mapstructure:"log"`
	Metrics   metrics.Config  `mapstructure:"metrics"`
	Trace     trace.Config    `mapstructure:"trace"`
	Server    server.Config   `mapstructure:"server"`
	Segment   SegmentConfig   `mapstructure:"segment"`
	Snowflake SnowflakeConfig `mapstructure:"snowflake"`
}

// SegmentConfig 号段模式
type SegmentConfig struct {
	Enable bool   `mapstructure:"enable"`
	Driver string `mapstructure:"driver"`

	MySQL    connector.MySQLConfig      `mapstructure:"mysql"`
	Postgres connector.PostgreSQLConfig `mapstructure:"postgres"`
	SQLite   connector.SQLiteConfig     `mapstructure:"sqlite"`
	Redis    connector.RedisConfig      `mapstructure:"redis"`

	// RedisPrefix Redis 存储的 key 前缀，默认 leaf
	RedisPrefix string `mapstructure:"redis_prefix"`

	// AutoMigrate 启动时建表，生产环境通常由 DBA 建表
	AutoMigrate bool `mapstructure:"auto_migrate"`

	// Tags 启动时登记的 tag，已存在的不会被修改
	Tags []TagConfig `mapstructure:"tags"`

	DB          db.Config           `mapstructure:"db"`
	Allocator   segment.Config      `mapstructure:"allocator"`
	Breaker     store.BreakerConfig `mapstructure:"breaker"`
	RecordCache time.Duration       `mapstructure:"record_cache"`
}

// TagConfig 预置 tag
type TagConfig struct {
	Tag         string `mapstructure:"tag"`
	Step        int    `mapstructure:"step"`
	Description string `mapstructure:"description"`
}

// SnowflakeConfig 雪花模式
type SnowflakeConfig struct {
	Enable bool `mapstructure:"enable"`

	Etcd        connector.EtcdConfig `mapstructure:"etcd"`
	Coordinator coordinator.Config   `mapstructure:",squash"`
	Generator   snowflake.Config     `mapstructure:",squash"`
}

func (c *AppConfig) validate() error {
	if c.Segment.Enable {
		switch c.Segment.Driver {
		case DriverMySQL, DriverPostgres, DriverSQLite, DriverRedis:
		default:
			return xerrors.Wrapf(xerrors.ErrInvalidInput, "unknown segment driver %q", c.Segment.Driver)
		}
	}
	if c.Snowflake.Enable && c.Snowflake.Coordinator.Port == 0 {
		// 未配置端口时使用 HTTP 监听端口作为节点身份
		port, err := httpPort(c.Server.HTTPAddr)
		if err != nil {
			return err
		}
		c.Snowflake.Coordinator.Port = port
	}
	return nil
}

func httpPort(addr string) (int, error) {
	if addr == "" {
		addr = ":8080"
	}
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, xerrors.Wrapf(xerrors.ErrInvalidInput, "http_addr %q: %v", addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 {
		return 0, xerrors.Wrapf(xerrors.ErrInvalidInput, "http_addr %q has no fixed port", addr)
	}
	return port, nil
}
