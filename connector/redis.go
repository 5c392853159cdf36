package connector

import (
	"context"
	"sync"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/xerrors"
)

type redisConnector struct {
	*base
	cfg *RedisConfig

	mu     sync.RWMutex
	client *redis.Client
}

// NewRedis 创建 Redis 连接器
func NewRedis(cfg *RedisConfig, opts ...Option) (RedisConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	})

	c := &redisConnector{
		base:   newBase("redis", cfg.Name, o),
		cfg:    cfg,
		client: client,
	}

	if o.tracing {
		if err := redisotel.InstrumentTracing(client); err != nil {
			_ = client.Close()
			return nil, xerrors.Wrap(err, "instrument redis tracing")
		}
		if err := redisotel.InstrumentMetrics(client); err != nil {
			_ = client.Close()
			return nil, xerrors.Wrap(err, "instrument redis metrics")
		}
	}
	return c, nil
}

func (c *redisConnector) Connect(ctx context.Context) error {
	c.logger.Info("connecting to redis", clog.String("addr", c.cfg.Addr))

	err := c.ping(ctx)
	c.record(ctx, err)
	if err != nil {
		c.logger.Error("connect to redis failed", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "redis connector[%s]: %v", c.name, err)
	}

	c.healthy.Store(true)
	c.logger.Info("redis connected", clog.String("addr", c.cfg.Addr))
	return nil
}

func (c *redisConnector) ping(ctx context.Context) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()
	if client == nil {
		return ErrClientNil
	}
	return client.Ping(ctx).Err()
}

func (c *redisConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy.Store(false)
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	if err != nil {
		c.logger.Error("close redis client failed", clog.Error(err))
		return err
	}
	c.logger.Info("redis connection closed")
	return nil
}

func (c *redisConnector) HealthCheck(ctx context.Context) error {
	if err := c.ping(ctx); err != nil {
		c.healthy.Store(false)
		c.logger.Warn("redis health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "redis connector[%s]: %v", c.name, err)
	}
	c.healthy.Store(true)
	return nil
}

func (c *redisConnector) GetClient() *redis.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}
