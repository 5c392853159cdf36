package main

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

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

type closer func(ctx context.Context) error

// app 按依赖顺序组装组件，close 逆序释放
type app struct {
	logger  clog.Logger
	meter   metrics.Meter
	server  *server.Server
	closers []closer
}

// registrar 支持预置 tag 的存储
type registrar interface {
	Register(ctx context.Context, tag string, step int, desc string) error
}

func newApp(ctx context.Context, cfg *AppConfig) (_ *app, err error) {
	logger, err := clog.New(&cfg.Log)
	if err != nil {
		return nil, xerrors.Wrap(err, "create logger")
	}
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.meter, err = metrics.New(&cfg.Metrics, metrics.WithLogger(logger))
	if err != nil {
		return nil, xerrors.Wrap(err, "create meter")
	}
	a.onClose(a.meter.Shutdown)

	if cfg.Trace.ServiceName == "" {
		cfg.Trace.ServiceName = "leaf"
	}
	shutdownTrace, err := trace.Init(&cfg.Trace)
	if err != nil {
		return nil, xerrors.Wrap(err, "init trace")
	}
	a.onClose(closer(shutdownTrace))

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithMeter(a.meter),
	}
	if cfg.Trace.Enabled {
		opts = append(opts, server.WithTracing())
	}

	if cfg.Segment.Enable {
		alloc, err := a.startSegment(ctx, &cfg.Segment, cfg.Trace.Enabled)
		if err != nil {
			return nil, xerrors.Wrap(err, "start segment")
		}
		opts = append(opts, server.WithSegment(alloc))
	}
	if cfg.Snowflake.Enable {
		gen, coord, err := a.startSnowflake(ctx, &cfg.Snowflake, cfg.Trace.Enabled)
		if err != nil {
			return nil, xerrors.Wrap(err, "start snowflake")
		}
		opts = append(opts, server.WithSnowflake(gen),
			server.WithReadinessCheck("coordinator", func(context.Context) error {
				if _, ok := coord.WorkerID(); !ok {
					return coordinator.ErrCoordinationUnavailable
				}
				return nil
			}))
	}
	if !cfg.Segment.Enable && !cfg.Snowflake.Enable {
		logger.Warn("both segment and snowflake are disabled, every id will be 0")
	}

	a.server, err = server.New(&cfg.Server, opts...)
	if err != nil {
		return nil, xerrors.Wrap(err, "create server")
	}
	return a, nil
}

func (a *app) onClose(fn closer) {
	a.closers = append(a.closers, fn)
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("close component failed", clog.Error(err))
		}
	}
	a.closers = nil
	a.logger.Flush()
}

func (a *app) connectorOptions(tracing bool) []connector.Option {
	opts := []connector.Option{connector.WithLogger(a.logger), connector.WithMeter(a.meter)}
	if tracing {
		opts = append(opts, connector.WithTracing())
	}
	return opts
}

func (a *app) startSegment(ctx context.Context, cfg *SegmentConfig, tracing bool) (*segment.Allocator, error) {
	backing, err := a.openStore(ctx, cfg, tracing)
	if err != nil {
		return nil, err
	}

	if r, ok := backing.(registrar); ok {
		for _, t := range cfg.Tags {
			if err := r.Register(ctx, t.Tag, t.Step, t.Description); err != nil {
				return nil, xerrors.Wrapf(err, "register tag %s", t.Tag)
			}
		}
	}

	var s segment.Store = backing
	if s, err = store.WithBreaker(s, &cfg.Breaker, store.WithLogger(a.logger)); err != nil {
		return nil, err
	}
	if s, err = store.WithRecordCache(s, cfg.RecordCache); err != nil {
		return nil, err
	}

	alloc, err := segment.New(s, &cfg.Allocator, segment.WithLogger(a.logger), segment.WithMeter(a.meter))
	if err != nil {
		return nil, err
	}
	if err := alloc.Start(ctx); err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error {
		alloc.Stop()
		return nil
	})
	return alloc, nil
}

// openStore 按驱动建立连接并返回未装饰的存储
func (a *app) openStore(ctx context.Context, cfg *SegmentConfig, tracing bool) (segment.Store, error) {
	connOpts := a.connectorOptions(tracing)

	if cfg.Driver == DriverRedis {
		conn, err := connector.NewRedis(&cfg.Redis, connOpts...)
		if err != nil {
			return nil, err
		}
		if err := conn.Connect(ctx); err != nil {
			return nil, err
		}
		a.onClose(func(context.Context) error { return conn.Close() })
		return store.NewRedis(conn.GetClient(), cfg.RedisPrefix, store.WithLogger(a.logger))
	}

	var (
		conn connector.DatabaseConnector
		err  error
	)
	switch cfg.Driver {
	case DriverMySQL:
		conn, err = connector.NewMySQL(&cfg.MySQL, connOpts...)
	case DriverPostgres:
		conn, err = connector.NewPostgreSQL(&cfg.Postgres, connOpts...)
	default:
		conn, err = connector.NewSQLite(&cfg.SQLite, connOpts...)
	}
	if err != nil {
		return nil, err
	}
	if err := conn.Connect(ctx); err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error { return conn.Close() })

	dbOpts := []db.Option{db.WithLogger(a.logger)}
	if tracing {
		dbOpts = append(dbOpts, db.WithTracer(otel.GetTracerProvider()))
	}
	database, err := db.New(conn, &cfg.DB, dbOpts...)
	if err != nil {
		return nil, err
	}
	s, err := store.NewGorm(database, store.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := s.AutoMigrate(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (a *app) startSnowflake(ctx context.Context, cfg *SnowflakeConfig, tracing bool) (*snowflake.Generator, *coordinator.Coordinator, error) {
	conn, err := connector.NewEtcd(&cfg.Etcd, a.connectorOptions(tracing)...)
	if err != nil {
		return nil, nil, err
	}
	// etcd 不可达时仍可以依靠本地缓存启动
	if err := conn.Connect(ctx); err != nil {
		a.logger.Warn("etcd unreachable at startup", clog.Error(err))
	}
	a.onClose(func(context.Context) error { return conn.Close() })

	reg, err := coordinator.NewEtcdRegistry(conn)
	if err != nil {
		return nil, nil, err
	}
	coord, err := coordinator.New(reg, &cfg.Coordinator,
		coordinator.WithLogger(a.logger), coordinator.WithMeter(a.meter))
	if err != nil {
		return nil, nil, err
	}
	workerID, err := coord.Resolve(ctx)
	if err != nil {
		return nil, nil, err
	}
	a.onClose(func(context.Context) error {
		coord.Stop()
		return nil
	})

	gen, err := snowflake.New(workerID, &cfg.Generator,
		snowflake.WithLogger(a.logger), snowflake.WithMeter(a.meter))
	if err != nil {
		return nil, nil, err
	}
	return gen, coord, nil
}
