package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/leaf/xerrors"
)

const (
	MetricHTTPRequestsTotal          = "leaf_http_requests_total"
	MetricHTTPRequestDurationSeconds = "leaf_http_request_duration_seconds"

	// UnknownRoute 未匹配到路由时使用，避免把原始 path 放进标签
	UnknownRoute = "unknown"
)

var defaultHTTPDurationBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// HTTPServerMetrics HTTP 服务端 RED 指标
type HTTPServerMetrics struct {
	requests Counter
	duration Histogram
}

// NewHTTPServerMetrics 在 m 上创建请求计数与延迟直方图
func NewHTTPServerMetrics(m Meter) (*HTTPServerMetrics, error) {
	if m == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "meter is nil")
	}
	requests, err := m.Counter(MetricHTTPRequestsTotal, "Total number of HTTP requests.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create http request counter")
	}
	duration, err := m.Histogram(MetricHTTPRequestDurationSeconds, "HTTP request duration in seconds.",
		WithUnit("s"), WithBuckets(defaultHTTPDurationBuckets))
	if err != nil {
		return nil, xerrors.Wrap(err, "create http duration histogram")
	}
	return &HTTPServerMetrics{requests: requests, duration: duration}, nil
}

// Observe 记录一次请求
func (m *HTTPServerMetrics) Observe(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	if route == "" {
		route = UnknownRoute
	}
	m.requests.Inc(ctx, L("method", method), L("route", route), L("status", strconv.Itoa(status)))
	m.duration.Record(ctx, elapsed.Seconds(), L("method", method), L("route", route), L("status_class", StatusClass(status)))
}

// StatusClass 把状态码归为 2xx/3xx/4xx/5xx
func StatusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}

// GinMiddleware 以路由模板（c.FullPath）为标签记录 RED 指标
func GinMiddleware(m *HTTPServerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.Observe(c.Request.Context(), c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
