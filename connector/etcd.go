package connector

import (
	"context"
	"sync"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/xerrors"
)

// healthKey 探活读取的 key，不存在也算成功
const healthKey = "/leaf/health-check"

type etcdConnector struct {
	*base
	cfg *EtcdConfig

	mu     sync.RWMutex
	client *clientv3.Client
}

// NewEtcd 创建 etcd 连接器
//
// clientv3.New 不会阻塞等待连接建立，真正的可达性在 Connect 中检查。
func NewEtcd(cfg *EtcdConfig, opts ...Option) (EtcdConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	client, err := clientv3.New(clientv3.Config{
		Endpoints:            cfg.Endpoints,
		Username:             cfg.Username,
		Password:             cfg.Password,
		DialTimeout:          cfg.DialTimeout,
		DialKeepAliveTime:    cfg.KeepAliveTime,
		DialKeepAliveTimeout: cfg.KeepAliveTimeout,
	})
	if err != nil {
		return nil, xerrors.Wrapf(ErrConnection, "etcd connector[%s]: %v", cfg.Name, err)
	}

	return &etcdConnector{
		base:   newBase("etcd", cfg.Name, o),
		cfg:    cfg,
		client: client,
	}, nil
}

func (c *etcdConnector) Connect(ctx context.Context) error {
	c.logger.Info("connecting to etcd", clog.Any("endpoints", c.cfg.Endpoints))

	err := c.probe(ctx)
	c.record(ctx, err)
	if err != nil {
		c.logger.Error("connect to etcd failed", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "etcd connector[%s]: %v", c.name, err)
	}

	c.healthy.Store(true)
	c.logger.Info("etcd connected", clog.Any("endpoints", c.cfg.Endpoints))
	return nil
}

func (c *etcdConnector) probe(ctx context.Context) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()
	if client == nil {
		return ErrClientNil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()
	_, err := client.Get(ctx, healthKey)
	return err
}

func (c *etcdConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy.Store(false)
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	if err != nil {
		c.logger.Error("close etcd client failed", clog.Error(err))
		return err
	}
	c.logger.Info("etcd connection closed")
	return nil
}

func (c *etcdConnector) HealthCheck(ctx context.Context) error {
	if err := c.probe(ctx); err != nil {
		c.healthy.Store(false)
		c.logger.Warn("etcd health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "etcd connector[%s]: %v", c.name, err)
	}
	c.healthy.Store(true)
	return nil
}

func (c *etcdConnector) GetClient() *clientv3.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

