package segment

import (
	"context"
	"time"

	"github.com/ceyewan/leaf/metrics"
)

const (
	MetricIDsTotal              = "leaf_segment_ids_total"
	MetricRefillTotal           = "leaf_segment_refill_total"
	MetricRefillDurationSeconds = "leaf_segment_refill_duration_seconds"
	MetricStep                  = "leaf_segment_step"
	MetricTags                  = "leaf_segment_tags"
)

type componentMetrics struct {
	ids            metrics.Counter
	refills        metrics.Counter
	refillDuration metrics.Histogram
	step           metrics.Gauge
	tags           metrics.Gauge
}

func newComponentMetrics(m metrics.Meter) (*componentMetrics, error) {
	var (
		cm  componentMetrics
		err error
	)
	if cm.ids, err = m.Counter(MetricIDsTotal, "IDs served by the segment allocator."); err != nil {
		return nil, err
	}
	if cm.refills, err = m.Counter(MetricRefillTotal, "Segment refills from the backing store."); err != nil {
		return nil, err
	}
	if cm.refillDuration, err = m.Histogram(MetricRefillDurationSeconds, "Segment refill latency.",
		metrics.WithUnit("s"), metrics.WithBuckets([]float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5})); err != nil {
		return nil, err
	}
	if cm.step, err = m.Gauge(MetricStep, "Current step per tag."); err != nil {
		return nil, err
	}
	if cm.tags, err = m.Gauge(MetricTags, "Number of tags held by the allocator."); err != nil {
		return nil, err
	}
	return &cm, nil
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *componentMetrics) observeID(ctx context.Context, tag string, err error) {
	m.ids.Inc(ctx, metrics.L("tag", tag), metrics.L("result", result(err)))
}

func (m *componentMetrics) observeRefill(ctx context.Context, tag string, d time.Duration, err error) {
	m.refills.Inc(ctx, metrics.L("tag", tag), metrics.L("result", result(err)))
	m.refillDuration.Record(ctx, d.Seconds(), metrics.L("tag", tag))
}

func (m *componentMetrics) setStep(ctx context.Context, tag string, step int64) {
	m.step.Set(ctx, float64(step), metrics.L("tag", tag))
}

func (m *componentMetrics) setTags(ctx context.Context, n int) {
	m.tags.Set(ctx, float64(n))
}
