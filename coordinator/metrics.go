package coordinator

import (
	"context"

	"github.com/ceyewan/leaf/metrics"
)

const MetricHeartbeatTotal = "leaf_coordinator_heartbeat_total"

type componentMetrics struct {
	heartbeats metrics.Counter
}

func newComponentMetrics(m metrics.Meter) (*componentMetrics, error) {
	c, err := m.Counter(MetricHeartbeatTotal, "Heartbeats written to the coordination service.")
	if err != nil {
		return nil, err
	}
	return &componentMetrics{heartbeats: c}, nil
}

// observeHeartbeat result 为 ok、error 或 skipped
func (m *componentMetrics) observeHeartbeat(ctx context.Context, result string) {
	m.heartbeats.Inc(ctx, metrics.L("result", result))
}
