package connector

import (
	"context"
	"sync"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/xerrors"
)

type gormConnector struct {
	*base
	driver    string
	dialector func() gorm.Dialector
	pool      PoolConfig
	target    string

	mu sync.RWMutex
	db *gorm.DB
}

// NewMySQL 创建 MySQL 连接器，Connect 时才建立连接
func NewMySQL(cfg *MySQLConfig, opts ...Option) (DatabaseConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	dsn := cfg.dsn()
	return newGormConnector("mysql", cfg.Name, cfg.Pool, cfg.Host,
		func() gorm.Dialector { return mysql.Open(dsn) }, opts), nil
}

// NewPostgreSQL 创建 PostgreSQL 连接器
func NewPostgreSQL(cfg *PostgreSQLConfig, opts ...Option) (DatabaseConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	dsn := cfg.dsn()
	return newGormConnector("postgres", cfg.Name, cfg.Pool, cfg.Host,
		func() gorm.Dialector { return postgres.Open(dsn) }, opts), nil
}

// NewSQLite 创建 SQLite 连接器
func NewSQLite(cfg *SQLiteConfig, opts ...Option) (DatabaseConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	path := cfg.Path
	return newGormConnector("sqlite", cfg.Name, cfg.Pool, path,
		func() gorm.Dialector { return sqlite.Open(path) }, opts), nil
}

func newGormConnector(driver, name string, pool PoolConfig, target string, d func() gorm.Dialector, opts []Option) *gormConnector {
	o := applyOptions(opts)
	return &gormConnector{
		base:      newBase(driver, name, o),
		driver:    driver,
		dialector: d,
		pool:      pool,
		target:    target,
	}
}

func (c *gormConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return nil
	}

	c.logger.Info("connecting to database", clog.String("target", c.target))

	// 连接器只负责连接，SQL 日志由 db 组件按需开启
	db, err := gorm.Open(c.dialector(), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		c.record(ctx, err)
		c.logger.Error("open database failed", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "%s connector[%s]: %v", c.driver, c.name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		c.record(ctx, err)
		return xerrors.Wrapf(ErrConnection, "%s connector[%s]: %v", c.driver, c.name, err)
	}
	sqlDB.SetMaxIdleConns(c.pool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(c.pool.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(c.pool.ConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		c.record(ctx, err)
		_ = sqlDB.Close()
		c.logger.Error("ping database failed", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "%s connector[%s]: ping: %v", c.driver, c.name, err)
	}

	c.record(ctx, nil)
	c.db = db
	c.healthy.Store(true)
	c.logger.Info("database connected", clog.String("target", c.target))
	return nil
}

func (c *gormConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy.Store(false)
	if c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	c.db = nil
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		c.logger.Error("close database failed", clog.Error(err))
		return err
	}
	c.logger.Info("database connection closed")
	return nil
}

func (c *gormConnector) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	db := c.db
	c.mu.RUnlock()

	if db == nil {
		c.healthy.Store(false)
		return ErrClientNil
	}
	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.healthy.Store(false)
		c.logger.Warn("database health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "%s connector[%s]: %v", c.driver, c.name, err)
	}
	c.healthy.Store(true)
	return nil
}

func (c *gormConnector) GetClient() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

func (c *gormConnector) Driver() string {
	return c.driver
}
