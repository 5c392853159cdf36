// Package coordinator 借助注册中心为雪花生成器分配稳定的 worker ID
//
// 每个 ip:port 在 /snowflake/{name}/forever 下拥有一个持久顺序节点
// "{ip:port}-{seq}"，seq 即 worker ID。实例重启后找回自己的节点复用 ID，
// 并校验节点里上次上报的时间戳不晚于本机时钟。
//
// 注册中心不可用时退回到本地缓存文件中的 worker ID：
//
//	reg, _ := coordinator.NewEtcdRegistry(etcdConn)
//	coord, _ := coordinator.New(reg, &cfg.Snowflake, coordinator.WithLogger(logger))
//	defer coord.Stop()
//	workerID, err := coord.Resolve(ctx)
//
// 同一 ip:port 上的两个进程会拿到同一个 worker ID。
package coordinator

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/netutil"
	"github.com/ceyewan/leaf/xerrors"
)

// MaxWorkerID worker ID 上限，与 10 位 worker 字段一致
const MaxWorkerID = 1023

// Coordinator worker ID 协调器
type Coordinator struct {
	reg     Registry
	cfg     *Config
	logger  clog.Logger
	metrics *componentMetrics
	now     func() time.Time

	addr      string
	forever   string
	cacheFile string

	mu            sync.Mutex
	node          string
	workerID      int64
	resolved      bool
	fromCache     bool
	lastHeartbeat int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New 创建协调器，cfg.IP 为空时探测本机 IPv4
func New(reg Registry, cfg *Config, opts ...Option) (*Coordinator, error) {
	if reg == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "registry is nil")
	}
	if cfg == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "coordinator config is nil")
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	ip, err := netutil.Resolve(cfg.IP)
	if err != nil {
		return nil, xerrors.Wrap(err, "resolve local ip")
	}

	o := applyOptions(opts)
	m, err := newComponentMetrics(o.meter)
	if err != nil {
		return nil, xerrors.Wrap(err, "create coordinator metrics")
	}

	return &Coordinator{
		reg:       reg,
		cfg:       cfg,
		logger:    o.logger,
		metrics:   m,
		now:       o.now,
		addr:      net.JoinHostPort(ip, strconv.Itoa(cfg.Port)),
		forever:   "/snowflake/" + cfg.Name + "/forever",
		cacheFile: cacheFile(cfg.CacheDir, cfg.Name, cfg.Port),
	}, nil
}

// Addr 节点身份 ip:port
func (c *Coordinator) Addr() string {
	return c.addr
}

// Node 本实例在注册中心的完整路径，取自本地缓存时为空
func (c *Coordinator) Node() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.node
}

// WorkerID 返回已解析的 worker ID，未解析时 ok 为 false
func (c *Coordinator) WorkerID() (id int64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.workerID, c.resolved
}

// FromCache 本次 worker ID 是否取自本地缓存
func (c *Coordinator) FromCache() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fromCache
}

// Resolve 从注册中心获取 worker ID，成功后写本地缓存并启动心跳
//
// 注册中心在 RetryElapsed 内仍不可用时读取本地缓存；ErrClockRegressionOnRestart
// 与 ErrBoundsViolation 直接返回，不会退回缓存。
func (c *Coordinator) Resolve(ctx context.Context) (int64, error) {
	var (
		node string
		id   int64
	)
	op := func() error {
		n, wid, err := c.register(ctx)
		if err != nil {
			if xerrors.Is(err, ErrClockRegressionOnRestart) {
				return backoff.Permanent(err)
			}
			c.logger.WarnContext(ctx, "register worker node failed", clog.String("addr", c.addr), clog.Error(err))
			return err
		}
		node, id = n, wid
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx))
	if err != nil {
		if xerrors.Is(err, ErrClockRegressionOnRestart) {
			c.logger.ErrorContext(ctx, "clock regression detected on restart", clog.String("addr", c.addr), clog.Error(err))
			return 0, err
		}
		return c.resolveFromCache(ctx, xerrors.Join(ErrCoordinationUnavailable, err))
	}

	if id < 0 || id > MaxWorkerID {
		return 0, xerrors.Wrapf(ErrBoundsViolation, "worker id %d from %s", id, node)
	}

	if err := writeCache(c.cacheFile, id); err != nil {
		c.logger.WarnContext(ctx, "update local worker id cache failed", clog.String("file", c.cacheFile), clog.Error(err))
	}

	c.mu.Lock()
	c.node, c.workerID, c.resolved, c.fromCache = node, id, true, false
	c.lastHeartbeat = c.now().UnixMilli()
	c.mu.Unlock()

	c.startHeartbeat()
	c.logger.InfoContext(ctx, "worker id resolved",
		clog.String("addr", c.addr),
		clog.String("node", node),
		clog.Int64("worker_id", id))
	return id, nil
}

func (c *Coordinator) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = c.cfg.RetryElapsed
	b.MaxElapsedTime = c.cfg.RetryElapsed
	return b
}

func (c *Coordinator) resolveFromCache(ctx context.Context, cause error) (int64, error) {
	c.logger.ErrorContext(ctx, "coordination service unavailable, falling back to local cache",
		clog.String("addr", c.addr),
		clog.String("file", c.cacheFile),
		clog.Error(cause))

	id, err := readCache(c.cacheFile)
	if err != nil {
		return 0, xerrors.Join(cause, err)
	}
	if id < 0 || id > MaxWorkerID {
		return 0, xerrors.Wrapf(ErrBoundsViolation, "cached worker id %d", id)
	}

	c.mu.Lock()
	c.workerID, c.resolved, c.fromCache = id, true, true
	c.mu.Unlock()

	c.logger.WarnContext(ctx, "using cached worker id", clog.Int64("worker_id", id))
	return id, nil
}

// register 查找或创建本实例的节点，返回节点路径与序号
func (c *Coordinator) register(ctx context.Context) (string, int64, error) {
	exists, err := c.reg.Exists(ctx, c.forever)
	if err != nil {
		return "", 0, err
	}
	if !exists {
		if err := c.reg.EnsureParent(ctx, c.forever); err != nil {
			return "", 0, err
		}
		return c.createNode(ctx)
	}

	children, err := c.reg.Children(ctx, c.forever)
	if err != nil {
		return "", 0, err
	}
	for _, child := range children {
		addr, seq, ok := splitNode(child)
		if !ok || addr != c.addr {
			continue
		}
		node := c.forever + "/" + child
		if err := c.checkTimestamp(ctx, node); err != nil {
			return "", 0, err
		}
		c.logger.InfoContext(ctx, "found existing worker node", clog.String("node", node))
		return node, seq, nil
	}
	return c.createNode(ctx)
}

func (c *Coordinator) createNode(ctx context.Context) (string, int64, error) {
	data, err := c.payload()
	if err != nil {
		return "", 0, err
	}
	node, err := c.reg.CreateSequential(ctx, c.forever+"/"+c.addr+"-", data)
	if err != nil {
		return "", 0, err
	}
	_, seq, ok := splitNode(node[strings.LastIndex(node, "/")+1:])
	if !ok {
		return "", 0, xerrors.Wrapf(xerrors.ErrInvalidInput, "unexpected node name %s", node)
	}
	c.logger.InfoContext(ctx, "created worker node", clog.String("node", node))
	return node, seq, nil
}

func (c *Coordinator) checkTimestamp(ctx context.Context, node string) error {
	data, err := c.reg.Get(ctx, node)
	if err != nil {
		return err
	}
	ep, err := decodeEndpoint(data)
	if err != nil {
		return err
	}
	if now := c.now().UnixMilli(); ep.Timestamp > now {
		return xerrors.Wrapf(ErrClockRegressionOnRestart, "node %s reported %d, now %d", node, ep.Timestamp, now)
	}
	return nil
}

func (c *Coordinator) payload() ([]byte, error) {
	host, port, _ := net.SplitHostPort(c.addr)
	data, err := json.Marshal(Endpoint{IP: host, Port: port, Timestamp: c.now().UnixMilli()})
	if err != nil {
		return nil, xerrors.Wrap(err, "encode endpoint")
	}
	return data, nil
}

// splitNode "{ip:port}-{seq}" 拆成地址与序号
func splitNode(name string) (string, int64, bool) {
	idx := strings.LastIndex(name, "-")
	if idx <= 0 || idx == len(name)-1 {
		return "", 0, false
	}
	seq, err := strconv.ParseInt(name[idx+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return name[:idx], seq, true
}

func (c *Coordinator) startHeartbeat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		timer := time.NewTimer(c.cfg.HeartbeatDelay)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				c.heartbeat(ctx)
				timer.Reset(c.cfg.HeartbeatInterval)
			}
		}
	}()
}

// heartbeat 时钟回拨时跳过本次上报，失败只记录日志
func (c *Coordinator) heartbeat(ctx context.Context) {
	c.mu.Lock()
	node, last, id := c.node, c.lastHeartbeat, c.workerID
	c.mu.Unlock()

	now := c.now().UnixMilli()
	if now < last {
		c.metrics.observeHeartbeat(ctx, "skipped")
		c.logger.WarnContext(ctx, "clock behind last heartbeat, skipping",
			clog.Int64("now", now), clog.Int64("last", last))
		return
	}

	data, err := c.payload()
	if err == nil {
		err = c.reg.Put(ctx, node, data)
	}
	if err != nil {
		c.metrics.observeHeartbeat(ctx, "error")
		c.logger.WarnContext(ctx, "heartbeat failed", clog.String("node", node), clog.Error(err))
		return
	}

	c.mu.Lock()
	c.lastHeartbeat = now
	c.mu.Unlock()
	c.metrics.observeHeartbeat(ctx, "ok")

	if err := writeCache(c.cacheFile, id); err != nil {
		c.logger.WarnContext(ctx, "refresh local worker id cache failed", clog.Error(err))
	}
}

// Stop 停止心跳，可重复调用
func (c *Coordinator) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	c.wg.Wait()
	c.logger.Info("coordinator stopped", clog.String("addr", c.addr))
}
