// Package segment 号段模式的 ID 分配器。
//
// 每个 tag 持有一个双号段 Buffer：当前号段发号，消耗超过一定比例后由后台
// worker 从 Store 预取下一段，当前号段耗尽时切换。步长随两次补充的间隔自动
// 调整，请求越密集单次申请的号段越大。
//
// 基本使用：
//
//	alloc, err := segment.New(store, &segment.Config{}, segment.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	if err := alloc.Start(ctx); err != nil {
//		return err
//	}
//	defer alloc.Stop()
//
//	id, err := alloc.Get(ctx, "order")
package segment

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/xerrors"
)

const unknownTagLabel = "_unknown"

// Allocator 号段分配器，tag 到 Buffer 的映射只由 reconcile 修改
type Allocator struct {
	store   Store
	cfg     *Config
	logger  clog.Logger
	metrics *componentMetrics
	tracer  trace.Tracer
	now     func() time.Time

	mu      sync.RWMutex
	buffers map[string]*Buffer

	ready   atomic.Bool
	pool    *workerPool
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool
}

// New 创建分配器，Start 之前 Get 返回 ErrNotInitialized
func New(store Store, cfg *Config, opts ...Option) (*Allocator, error) {
	if store == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "segment store is nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	m, err := newComponentMetrics(o.meter)
	if err != nil {
		return nil, xerrors.Wrap(err, "create segment metrics")
	}

	return &Allocator{
		store:   store,
		cfg:     cfg,
		logger:  o.logger,
		metrics: m,
		tracer:  o.tracer.Tracer("github.com/ceyewan/leaf/segment"),
		now:     o.now,
		buffers: make(map[string]*Buffer),
	}, nil
}

// Start 完成首次 tag 加载并启动后台任务
//
// 首次加载失败则返回错误，分配器保持未就绪。
func (a *Allocator) Start(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return nil
	}

	tags, err := a.store.ListTags(ctx)
	if err != nil {
		a.started.Store(false)
		return xerrors.Wrap(err, "load tags")
	}
	a.apply(ctx, tags)

	a.runCtx, a.cancel = context.WithCancel(context.WithoutCancel(ctx))
	a.pool = newWorkerPool(a.cfg.Workers, a.cfg.QueueSize, a.logger)

	a.wg.Add(1)
	go a.reconcileLoop()

	a.ready.Store(true)
	a.logger.Info("segment allocator started",
		clog.Int("tags", len(tags)),
		clog.Duration("refresh_interval", a.cfg.RefreshInterval))
	return nil
}

// Stop 停止周期对齐与 worker，等待在途补充完成
func (a *Allocator) Stop() {
	if !a.started.Load() || !a.ready.CompareAndSwap(true, false) {
		return
	}
	a.cancel()
	a.wg.Wait()
	a.pool.Stop()
	a.logger.Info("segment allocator stopped")
}

// Ready 首次加载是否完成
func (a *Allocator) Ready() bool {
	return a.ready.Load()
}

// Get 为 tag 分配一个 ID
func (a *Allocator) Get(ctx context.Context, tag string) (int64, error) {
	if !a.ready.Load() {
		return 0, ErrNotInitialized
	}

	a.mu.RLock()
	b, ok := a.buffers[tag]
	a.mu.RUnlock()
	if !ok {
		a.metrics.observeID(ctx, unknownTagLabel, ErrUnknownKey)
		return 0, xerrors.Wrapf(ErrUnknownKey, "tag %q", tag)
	}

	id, err := a.get(ctx, b)
	a.metrics.observeID(ctx, tag, err)
	return id, err
}

func (a *Allocator) get(ctx context.Context, b *Buffer) (int64, error) {
	if !b.initialized.Load() {
		if err := a.initBuffer(ctx, b); err != nil {
			return 0, err
		}
	}
	return a.next(b)
}

// initBuffer 首次访问时同步加载当前号段，只有一个调用方真正访问 store
func (a *Allocator) initBuffer(ctx context.Context, b *Buffer) error {
	b.initMu.Lock()
	defer b.initMu.Unlock()
	if b.initialized.Load() {
		return nil
	}

	b.mu.RLock()
	seg := b.current()
	b.mu.RUnlock()

	if err := a.refill(ctx, b, seg); err != nil {
		a.logger.Error("init segment failed", clog.String("tag", b.tag), clog.Error(err))
		return err
	}
	b.initialized.Store(true)
	a.logger.Info("segment initialized", clog.String("tag", b.tag), clog.Int64("max", seg.Max()), clog.Int64("step", seg.Step()))
	return nil
}

func (a *Allocator) next(b *Buffer) (int64, error) {
	for {
		b.mu.RLock()
		seg := b.current()
		if !b.standbyReady &&
			float64(seg.Idle()) < a.cfg.Watermark*float64(seg.Step()) &&
			b.refilling.CompareAndSwap(false, true) {
			a.submitRefill(b, b.standby())
		}
		if v, ok := seg.take(); ok {
			b.mu.RUnlock()
			return v, nil
		}
		b.mu.RUnlock()

		a.waitRefill(b)

		b.mu.Lock()
		if v, ok := b.current().take(); ok {
			b.mu.Unlock()
			return v, nil
		}
		if !b.standbyReady {
			b.mu.Unlock()
			a.logger.Error("both segments exhausted", clog.String("buffer", b.String()))
			return 0, xerrors.Wrapf(ErrBothSegmentsExhausted, "tag %s", b.tag)
		}
		b.switchActive()
		b.mu.Unlock()
	}
}

// submitRefill 调用方已持有 refilling 标志
func (a *Allocator) submitRefill(b *Buffer, standby *Segment) {
	ok := a.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(a.runCtx, a.cfg.RefillTimeout)
		defer cancel()

		if err := a.refill(ctx, b, standby); err != nil {
			a.logger.Warn("refill standby segment failed", clog.String("tag", b.tag), clog.Error(err))
			b.refilling.Store(false)
			return
		}
		b.mu.Lock()
		b.standbyReady = true
		b.refilling.Store(false)
		b.mu.Unlock()
		a.logger.Debug("standby segment ready", clog.String("tag", b.tag), clog.String("segment", standby.String()))
	})
	if !ok {
		b.refilling.Store(false)
		a.logger.Warn("refill queue full, skip prefetch", clog.String("tag", b.tag))
	}
}

// waitRefill 等待在途补充：先自旋，仍未完成则睡一次后返回
func (a *Allocator) waitRefill(b *Buffer) {
	for spins := 0; b.refilling.Load(); spins++ {
		if spins >= a.cfg.SpinLimit {
			time.Sleep(a.cfg.ExhaustedWait)
			return
		}
		runtime.Gosched()
	}
}

func (a *Allocator) reconcileLoop() {
	defer a.wg.Done()
	ticker := time.NewTicker(a.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.runCtx.Done():
			return
		case <-ticker.C:
			a.reconcile(a.runCtx)
		}
	}
}

// reconcile 与 store 对齐 tag 集合，store 出错或返回空列表时保持现状
func (a *Allocator) reconcile(ctx context.Context) {
	tags, err := a.store.ListTags(ctx)
	if err != nil {
		a.logger.Warn("reconcile tags failed", clog.Error(err))
		return
	}
	a.apply(ctx, tags)
}

func (a *Allocator) apply(ctx context.Context, tags []string) {
	if len(tags) == 0 {
		return
	}

	want := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		want[t] = struct{}{}
	}

	a.mu.Lock()
	var added, removed []string
	for t := range want {
		if _, ok := a.buffers[t]; !ok {
			a.buffers[t] = newBuffer(t)
			added = append(added, t)
		}
	}
	for t := range a.buffers {
		if _, ok := want[t]; !ok {
			delete(a.buffers, t)
			removed = append(removed, t)
		}
	}
	n := len(a.buffers)
	a.mu.Unlock()

	a.metrics.setTags(ctx, n)
	if len(added) > 0 {
		sort.Strings(added)
		a.logger.Info("tags added", clog.Any("tags", added))
	}
	if len(removed) > 0 {
		sort.Strings(removed)
		a.logger.Info("tags removed", clog.Any("tags", removed))
	}
}

// Tags 当前持有的 tag，按字典序
func (a *Allocator) Tags() []string {
	a.mu.RLock()
	tags := make([]string, 0, len(a.buffers))
	for t := range a.buffers {
		tags = append(tags, t)
	}
	a.mu.RUnlock()
	sort.Strings(tags)
	return tags
}

func (a *Allocator) buffer(tag string) (*Buffer, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	b, ok := a.buffers[tag]
	return b, ok
}
