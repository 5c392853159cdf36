// Package testkit 测试辅助：默认 logger/meter、唯一 ID，以及基于 testcontainers 的依赖容器。
package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/metrics"
)

// Kit 通用测试依赖
type Kit struct {
	Ctx    context.Context
	Logger clog.Logger
	Meter  metrics.Meter
}

// NewKit 返回带默认依赖的 Kit，Meter 在测试结束时关闭
func NewKit(t *testing.T) *Kit {
	meter := NewMeter()
	t.Cleanup(func() { _ = meter.Shutdown(context.Background()) })
	return &Kit{
		Ctx:    context.Background(),
		Logger: NewLogger(),
		Meter:  meter,
	}
}

// NewLogger 开发格式输出到 stdout，-v 时方便排查
func NewLogger() clog.Logger {
	logger, err := clog.New(clog.NewDevDefaultConfig("leaf"))
	if err != nil {
		return clog.Discard()
	}
	return logger
}

// NewMeter 每次调用都使用独立的 Prometheus registry
func NewMeter() metrics.Meter {
	meter, err := metrics.New(metrics.NewDevDefaultConfig("leaf-test"))
	if err != nil {
		return metrics.Discard()
	}
	return meter
}

// NewContext 带超时的测试上下文
func NewContext(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// NewID 返回 8 位随机串，用于构造互不冲突的 key、表名后缀
func NewID() string {
	return uuid.New().String()[0:8]
}

// RequireDocker 集成测试入口：-short 或没有可用的容器运行时时跳过
func RequireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}
