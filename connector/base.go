package connector

import (
	"context"
	"sync/atomic"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/metrics"
)

const metricConnectTotal = "leaf_connector_connect_total"

// base 各连接器共享的健康状态、日志和连接计数
type base struct {
	kind    string
	name    string
	logger  clog.Logger
	healthy atomic.Bool
	attempt metrics.Counter
}

func newBase(kind, name string, o *options) *base {
	b := &base{
		kind:   kind,
		name:   name,
		logger: o.logger.With(clog.String("connector", kind), clog.String("name", name)),
	}
	c, err := o.meter.Counter(metricConnectTotal, "Connection attempts by connector and result.")
	if err != nil {
		b.logger.Warn("create connector counter failed", clog.Error(err))
		c, _ = metrics.Discard().Counter(metricConnectTotal, "")
	}
	b.attempt = c
	return b
}

func (b *base) record(ctx context.Context, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	b.attempt.Inc(ctx, metrics.L("connector", b.kind), metrics.L("name", b.name), metrics.L("result", result))
}

func (b *base) IsHealthy() bool {
	return b.healthy.Load()
}

func (b *base) Name() string {
	return b.name
}
