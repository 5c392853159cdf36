// Package snowflake 实现 41/10/12 位布局的雪花 ID 生成器
//
// 高 41 位为相对 Epoch 的毫秒数，中间 10 位为 worker ID，低 12 位为毫秒内序列号。
// 每个新毫秒的起始序列号取 [0, 100) 的随机值，避免低流量时 ID 尾数总是 0。
//
// worker ID 通常由 coordinator 分配：
//
//	workerID, _ := coord.Resolve(ctx)
//	gen, _ := snowflake.New(workerID, snowflake.DefaultConfig(), snowflake.WithLogger(logger))
//	id, err := gen.NextID(ctx)
package snowflake

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/xerrors"
)

const (
	workerIDBits = 10
	sequenceBits = 12

	// MaxWorkerID worker ID 上限 1023
	MaxWorkerID = -1 ^ (-1 << workerIDBits)

	maxSequence = -1 ^ (-1 << sequenceBits)

	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits

	seedRange = 100

	// wrapPollInterval 序列号用尽后轮询时钟的间隔
	wrapPollInterval = 100 * time.Microsecond
)

func randomSeed() int64 {
	return rand.Int64N(seedRange)
}

// Generator 雪花 ID 生成器，并发安全
type Generator struct {
	mu       sync.Mutex
	workerID int64
	cfg      *Config
	lastTime int64
	sequence int64

	clock   Clock
	seed    func() int64
	logger  clog.Logger
	metrics *componentMetrics
}

// New 创建生成器，workerID 必须在 [0, 1023]
func New(workerID int64, cfg *Config, opts ...Option) (*Generator, error) {
	if workerID < 0 || workerID > MaxWorkerID {
		return nil, xerrors.Wrapf(ErrBoundsViolation, "worker id %d", workerID)
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.setDefaults()

	o := applyOptions(opts)
	if err := cfg.validate(o.clock.Now()); err != nil {
		return nil, err
	}

	m, err := newComponentMetrics(o.meter)
	if err != nil {
		return nil, xerrors.Wrap(err, "create snowflake metrics")
	}

	g := &Generator{
		workerID: workerID,
		cfg:      cfg,
		lastTime: -1,
		clock:    o.clock,
		seed:     o.seq,
		logger:   o.logger,
		metrics:  m,
	}
	g.logger.Info("snowflake generator created",
		clog.Int64("worker_id", workerID),
		clog.Int64("epoch", cfg.Epoch),
		clog.Duration("regression_threshold", cfg.RegressionThreshold))
	return g, nil
}

// WorkerID 当前 worker ID
func (g *Generator) WorkerID() int64 {
	return g.workerID
}

// Epoch 当前起始时间（Unix 毫秒）
func (g *Generator) Epoch() int64 {
	return g.cfg.Epoch
}

// NextID 生成下一个 ID
//
// 时钟回拨不超过 RegressionThreshold 时等待两倍回拨时长后重试一次；
// 超过阈值返回 ErrClockRegressionSevere。
func (g *Generator) NextID(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	id, err := g.next(ctx)
	g.metrics.observeID(ctx, err)
	return id, err
}

func (g *Generator) next(ctx context.Context) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	if now < g.lastTime {
		offset := time.Duration(g.lastTime-now) * time.Millisecond
		if offset > g.cfg.RegressionThreshold {
			g.metrics.observeRegression(ctx, true)
			g.logger.ErrorContext(ctx, "clock moved backwards beyond threshold",
				clog.Duration("offset", offset),
				clog.Duration("threshold", g.cfg.RegressionThreshold))
			return 0, xerrors.Wrapf(ErrClockRegressionSevere, "offset %v", offset)
		}

		g.metrics.observeRegression(ctx, false)
		g.clock.Sleep(offset * 2)
		now = g.clock.Now()
		if now < g.lastTime {
			g.logger.WarnContext(ctx, "clock still behind after wait", clog.Duration("offset", offset))
			return 0, xerrors.Wrapf(ErrClockRegression, "offset %v", offset)
		}
	}

	// 等待失败时 sequence 与 lastTime 保持不变，同一毫秒内后续调用继续报错
	var seq int64
	if now == g.lastTime {
		seq = (g.sequence + 1) & maxSequence
		if seq == 0 {
			next, err := g.waitNextMillis(g.lastTime)
			if err != nil {
				return 0, err
			}
			now = next
			seq = g.seed() % seedRange
		}
	} else {
		seq = g.seed() % seedRange
	}

	g.sequence = seq
	g.lastTime = now
	return (now-g.cfg.Epoch)<<timestampShift | g.workerID<<workerIDShift | seq, nil
}

// waitNextMillis 轮询直到时钟越过 last，最多等待 WrapBudget
func (g *Generator) waitNextMillis(last int64) (int64, error) {
	for waited := time.Duration(0); ; waited += wrapPollInterval {
		now := g.clock.Now()
		if now > last {
			return now, nil
		}
		if waited >= g.cfg.WrapBudget {
			return 0, xerrors.Wrapf(ErrClockRegression, "clock not advancing past %d after %v", last, g.cfg.WrapBudget)
		}
		g.clock.Sleep(wrapPollInterval)
	}
}
