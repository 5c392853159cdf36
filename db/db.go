// Package db 在 connector.DatabaseConnector 之上提供带日志、链路追踪和事务辅助的 GORM 访问。
//
// db 借用连接器的连接，不负责其生命周期：
//
//	conn, _ := connector.NewMySQL(&cfg.MySQL, connector.WithLogger(logger))
//	defer conn.Close()
//	_ = conn.Connect(ctx)
//
//	database, _ := db.New(conn, &db.Config{}, db.WithLogger(logger), db.WithTracer(otel.GetTracerProvider()))
//	err := database.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
//		return tx.Create(&row).Error
//	})
package db

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/connector"
	"github.com/ceyewan/leaf/xerrors"
)

// DB 数据库组件
type DB interface {
	// DB 返回绑定 ctx 的 *gorm.DB
	DB(ctx context.Context) *gorm.DB

	// Transaction 在事务中执行 fn，fn 返回错误时回滚
	Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error

	// Driver 返回底层驱动名："mysql"、"postgres" 或 "sqlite"
	Driver() string

	// Ping 检查数据库可达
	Ping(ctx context.Context) error
}

type database struct {
	client *gorm.DB
	driver string
	logger clog.Logger
}

// New 创建 DB 组件，conn 必须已经 Connect
func New(conn connector.DatabaseConnector, cfg *Config, opts ...Option) (DB, error) {
	if conn == nil {
		return nil, ErrConnectorRequired
	}
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := &options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(o)
	}

	client := conn.GetClient()
	if client == nil {
		return nil, xerrors.Wrapf(ErrNotConnected, "connector %s", conn.Name())
	}

	if o.tracer != nil {
		plugin := otelgorm.NewPlugin(
			otelgorm.WithTracerProvider(o.tracer),
			otelgorm.WithDBName(conn.Name()),
		)
		if err := client.Use(plugin); err != nil {
			return nil, xerrors.Wrap(err, "register otelgorm plugin")
		}
	}

	client = client.Session(&gorm.Session{Logger: newGormLogger(o.logger, cfg)})

	return &database{
		client: client,
		driver: conn.Driver(),
		logger: o.logger,
	}, nil
}

func (d *database) DB(ctx context.Context) *gorm.DB {
	return d.client.WithContext(ctx)
}

func (d *database) Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error {
	return d.client.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, tx)
	})
}

func (d *database) Driver() string {
	return d.driver
}

func (d *database) Ping(ctx context.Context) error {
	sqlDB, err := d.client.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
