package segment

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/xerrors"
)

// nextStep 根据距上次补充的时长调整步长
//
//	elapsed < d      步长翻倍，超过 maxStep 则不变
//	d <= elapsed < 2d 不变
//	elapsed >= 2d    步长减半，低于 minStep 则不变
func nextStep(step, minStep int64, elapsed, d time.Duration, maxStep int64) int64 {
	switch {
	case elapsed < d:
		if step*2 > maxStep {
			return step
		}
		return step * 2
	case elapsed < 2*d:
		return step
	default:
		if step/2 >= minStep {
			return step / 2
		}
		return step
	}
}

// refill 从 store 申请号段填入 seg，步长调整在这里内联完成
//
// 同一 buffer 同时最多只有一个 refill：首次加载由 initMu 串行，
// 之后由 refilling 标志保证。
func (a *Allocator) refill(ctx context.Context, b *Buffer, seg *Segment) (err error) {
	ctx, span := a.tracer.Start(ctx, "segment.refill",
		trace.WithAttributes(attribute.String("leaf.tag", b.tag)))
	start := time.Now()
	defer func() {
		a.metrics.observeRefill(ctx, b.tag, time.Since(start), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	b.tuneMu.Lock()
	defer b.tuneMu.Unlock()

	var alloc Allocation
	switch {
	case !b.initialized.Load():
		alloc, err = a.store.BumpAndFetch(ctx, b.tag)
		if err != nil {
			return xerrors.Wrapf(err, "bump tag %s", b.tag)
		}
		b.step = alloc.Step
		b.minStep = alloc.Step

	case b.lastRefill.IsZero():
		// 按 buffer 当前步长申请，store 中的 step 可能已被修改
		alloc, err = a.store.BumpByAndFetch(ctx, b.tag, b.step)
		if err != nil {
			return xerrors.Wrapf(err, "bump tag %s by %d", b.tag, b.step)
		}
		b.lastRefill = a.now()
		b.minStep = alloc.Step

	default:
		elapsed := a.now().Sub(b.lastRefill)
		next := nextStep(b.step, b.minStep, elapsed, a.cfg.SegmentDuration, a.cfg.MaxStep)
		a.logger.Info("step adjusted",
			clog.String("tag", b.tag),
			clog.Int64("step", b.step),
			clog.Float64("elapsed_min", elapsed.Minutes()),
			clog.Int64("next_step", next))

		alloc, err = a.store.BumpByAndFetch(ctx, b.tag, next)
		if err != nil {
			return xerrors.Wrapf(err, "bump tag %s by %d", b.tag, next)
		}
		b.lastRefill = a.now()
		b.step = next
		b.minStep = alloc.Step
	}

	seg.fill(alloc.MaxID, b.step)
	a.metrics.setStep(ctx, b.tag, b.step)
	span.SetAttributes(attribute.Int64("leaf.max_id", alloc.MaxID), attribute.Int64("leaf.step", b.step))
	return nil
}
