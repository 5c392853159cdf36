package snowflake

import (
	"context"

	"github.com/ceyewan/leaf/metrics"
)

const (
	MetricIDsTotal             = "leaf_snowflake_ids_total"
	MetricClockRegressionTotal = "leaf_snowflake_clock_regression_total"
)

type componentMetrics struct {
	ids        metrics.Counter
	regression metrics.Counter
}

func newComponentMetrics(m metrics.Meter) (*componentMetrics, error) {
	ids, err := m.Counter(MetricIDsTotal, "IDs served by the snowflake generator.")
	if err != nil {
		return nil, err
	}
	regression, err := m.Counter(MetricClockRegressionTotal, "Clock regressions observed by the snowflake generator.")
	if err != nil {
		return nil, err
	}
	return &componentMetrics{ids: ids, regression: regression}, nil
}

func (m *componentMetrics) observeID(ctx context.Context, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ids.Inc(ctx, metrics.L("result", result))
}

func (m *componentMetrics) observeRegression(ctx context.Context, severe bool) {
	severity := "minor"
	if severe {
		severity = "severe"
	}
	m.regression.Inc(ctx, metrics.L("severity", severity))
}
