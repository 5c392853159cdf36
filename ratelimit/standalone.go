package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/metrics"
	"github.com/ceyewan/leaf/xerrors"
)

// limiterWrapper 包装 rate.Limiter 并记录最后访问时间
type limiterWrapper struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

type standaloneLimiter struct {
	cfg      *Config
	logger   clog.Logger
	limiters sync.Map // map[string]*limiterWrapper

	decisions metrics.Counter
	size      metrics.Gauge

	stopCh    chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

func newStandalone(cfg *Config, o *options) (*standaloneLimiter, error) {
	decisions, err := o.meter.Counter(MetricDecisionsTotal, "Rate limit decisions.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create ratelimit metrics")
	}
	size, err := o.meter.Gauge(MetricLimiters, "Token buckets held by the limiter.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create ratelimit metrics")
	}

	l := &standaloneLimiter{
		cfg:       cfg,
		logger:    o.logger,
		decisions: decisions,
		size:      size,
		stopCh:    make(chan struct{}),
	}
	go l.cleanup(cfg.CleanupInterval, cfg.IdleTimeout)
	return l, nil
}

func (l *standaloneLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return l.AllowN(ctx, key, 1)
}

func (l *standaloneLimiter) AllowN(ctx context.Context, key string, n int) (bool, error) {
	if l.closed.Load() {
		return false, ErrClosed
	}
	if key == "" {
		return false, ErrKeyEmpty
	}
	if n <= 0 {
		return false, xerrors.Wrapf(xerrors.ErrInvalidInput, "ratelimit: n must be positive, got %d", n)
	}

	now := time.Now()
	w := l.getLimiter(key, now)
	allowed := w.limiter.AllowN(now, n)

	result := "allowed"
	if !allowed {
		result = "denied"
		l.logger.DebugContext(ctx, "rate limited", clog.String("key", key), clog.Int("requested", n))
	}
	l.decisions.Inc(ctx, metrics.L("result", result))
	return allowed, nil
}

func (l *standaloneLimiter) getLimiter(key string, now time.Time) *limiterWrapper {
	if v, ok := l.limiters.Load(key); ok {
		w := v.(*limiterWrapper)
		w.lastSeen.Store(now.UnixNano())
		return w
	}

	w := &limiterWrapper{limiter: rate.NewLimiter(rate.Limit(l.cfg.Rate), l.cfg.Burst)}
	w.lastSeen.Store(now.UnixNano())
	actual, loaded := l.limiters.LoadOrStore(key, w)
	if !loaded {
		l.size.Inc(context.Background())
	}
	return actual.(*limiterWrapper)
}

// cleanup 定期清理空闲的令牌桶
func (l *standaloneLimiter) cleanup(interval, idleTimeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep(time.Now(), idleTimeout)
		case <-l.stopCh:
			return
		}
	}
}

func (l *standaloneLimiter) sweep(now time.Time, idleTimeout time.Duration) int {
	count := 0
	l.limiters.Range(func(key, value any) bool {
		w := value.(*limiterWrapper)
		if now.Sub(time.Unix(0, w.lastSeen.Load())) > idleTimeout {
			l.limiters.Delete(key)
			l.size.Dec(context.Background())
			count++
		}
		return true
	})
	if count > 0 {
		l.logger.Debug("cleaned up idle limiters", clog.Int("count", count))
	}
	return count
}

func (l *standaloneLimiter) Close() error {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.stopCh)
	})
	return nil
}
