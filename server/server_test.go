package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ceyewan/leaf/db"
	"github.com/ceyewan/leaf/ratelimit"
	"github.com/ceyewan/leaf/segment"
	"github.com/ceyewan/leaf/snowflake"
	"github.com/ceyewan/leaf/store"
	"github.com/ceyewan/leaf/testkit"
	"github.com/ceyewan/leaf/xerrors"
)

func newSegment(t *testing.T, start bool) *segment.Allocator {
	t.Helper()
	ctx := context.Background()
	database, err := db.New(testkit.NewSQLiteConnector(t), &db.Config{})
	require.NoError(t, err)
	s, err := store.NewGorm(database)
	require.NoError(t, err)
	require.NoError(t, s.AutoMigrate(ctx))
	require.NoError(t, s.Register(ctx, "order", 100, "order ids"))

	a, err := segment.New(s, &segment.Config{RefreshInterval: time.Hour})
	require.NoError(t, err)
	if start {
		require.NoError(t, a.Start(ctx))
	}
	t.Cleanup(a.Stop)
	return a
}

func newSnowflake(t *testing.T) *snowflake.Generator {
	t.Helper()
	g, err := snowflake.New(7, nil)
	require.NoError(t, err)
	return g
}

func newTestServer(t *testing.T, cfg *Config, opts ...Option) *Server {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.Mode = "test"
	s, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestNew_Validate_Unit(t *testing.T) {
	_, err := New(&Config{Mode: "prod"})
	assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput))

	cfg := &Config{}
	cfg.setDefaults()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestServer_SegmentGet_Unit(t *testing.T) {
	s := newTestServer(t, nil, WithSegment(newSegment(t, true)))

	var last int64
	for i := 0; i < 150; i++ {
		rec := do(t, s, "/api/segment/get/order")
		require.Equal(t, http.StatusOK, rec.Code)
		id, err := strconv.ParseInt(rec.Body.String(), 10, 64)
		require.NoError(t, err)
		assert.Greater(t, id, last)
		last = id
	}

	rec := do(t, s, "/api/segment/get/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeUnknownKey, decodeError(t, rec).Code)
}

func TestServer_SegmentNotInitialized_Unit(t *testing.T) {
	s := newTestServer(t, nil, WithSegment(newSegment(t, false)))

	rec := do(t, s, "/api/segment/get/order")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, CodeNotInitialized, decodeError(t, rec).Code)

	rec = do(t, s, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_DisabledModesReturnZero_Unit(t *testing.T) {
	s := newTestServer(t, nil)

	for _, path := range []string{"/api/segment/get/order", "/api/snowflake/get/anything"} {
		rec := do(t, s, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "0", rec.Body.String(), path)
	}

	assert.JSONEq(t, "[]", do(t, s, "/cache").Body.String())
	assert.JSONEq(t, "[]", do(t, s, "/db").Body.String())
}

func TestServer_Snowflake_Unit(t *testing.T) {
	g := newSnowflake(t)
	s := newTestServer(t, nil, WithSnowflake(g))

	rec := do(t, s, "/api/snowflake/get/ignored")
	require.Equal(t, http.StatusOK, rec.Code)
	id, err := strconv.ParseInt(rec.Body.String(), 10, 64)
	require.NoError(t, err)
	assert.Positive(t, id)

	rec = do(t, s, fmt.Sprintf("/api/snowflake/decode/%d", id))
	require.Equal(t, http.StatusOK, rec.Code)
	var parts snowflake.Parts
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parts))
	assert.Equal(t, id, parts.ID)
	assert.Equal(t, int64(7), parts.WorkerID)
	assert.InDelta(t, time.Now().UnixMilli(), parts.Timestamp, 5000)

	rec = do(t, s, "/api/snowflake/decode/abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeBadRequest, decodeError(t, rec).Code)
}

func TestServer_CacheAndRecords_Unit(t *testing.T) {
	a := newSegment(t, true)
	s := newTestServer(t, nil, WithSegment(a))
	_, err := a.Get(context.Background(), "order")
	require.NoError(t, err)

	var views []segment.BufferView
	require.NoError(t, json.Unmarshal(do(t, s, "/cache").Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "order", views[0].Tag)
	assert.True(t, views[0].Initialized)

	var records []segment.AllocRecord
	require.NoError(t, json.Unmarshal(do(t, s, "/db").Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "order ids", records[0].Description)
	assert.Equal(t, int64(100), records[0].Step)
}

func TestClassify_Unit(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{segment.ErrUnknownKey, http.StatusNotFound, CodeUnknownKey},
		{segment.ErrNotInitialized, http.StatusServiceUnavailable, CodeNotInitialized},
		{xerrors.Wrap(segment.ErrBothSegmentsExhausted, "order"), http.StatusServiceUnavailable, CodeExhausted},
		{snowflake.ErrClockRegression, http.StatusInternalServerError, CodeClockRegression},
		{snowflake.ErrClockRegressionSevere, http.StatusInternalServerError, CodeClockRegression},
		{snowflake.ErrBoundsViolation, http.StatusInternalServerError, CodeWorkerID},
		{context.DeadlineExceeded, http.StatusServiceUnavailable, CodeTimeout},
		{xerrors.Wrap(xerrors.ErrInvalidInput, "x"), http.StatusBadRequest, CodeBadRequest},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		status, code := classify(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}

func TestServer_RequestID_Unit(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "req-1", rec.Header().Get(HeaderRequestID))
}

func TestServer_Readyz_Unit(t *testing.T) {
	var probeErr error
	s := newTestServer(t, nil,
		WithSnowflake(newSnowflake(t)),
		WithReadinessCheck("coordinator", func(context.Context) error { return probeErr }))

	rec := do(t, s, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"snowflake"`)

	probeErr = errors.New("etcd down")
	rec = do(t, s, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "etcd down")
}

func TestServer_RateLimit_Unit(t *testing.T) {
	cfg := &Config{RateLimit: ratelimit.Config{Enabled: true, Rate: 1, Burst: 2}}
	s := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, do(t, s, "/healthz").Code)
	assert.Equal(t, http.StatusOK, do(t, s, "/healthz").Code)
	rec := do(t, s, "/healthz")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate_limited")
}

func TestServer_Metrics_Unit(t *testing.T) {
	meter := testkit.NewMeter()
	t.Cleanup(func() { _ = meter.Shutdown(context.Background()) })
	s := newTestServer(t, nil, WithMeter(meter), WithSnowflake(newSnowflake(t)))

	require.Equal(t, http.StatusOK, do(t, s, "/api/snowflake/get/x").Code)
	rec := do(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "leaf_http_requests_total")
}

func TestServer_StartStop_Unit(t *testing.T) {
	s := newTestServer(t, &Config{HTTPAddr: "127.0.0.1:0", GRPCAddr: "127.0.0.1:0"},
		WithSnowflake(newSnowflake(t)))
	ctx := testkit.NewContext(t, 10*time.Second)
	require.NoError(t, s.Start(ctx))

	resp, err := http.Get("http://" + s.HTTPAddr().String() + "/api/snowflake/get/x")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, strings.HasPrefix(string(body), "{"))

	conn, err := grpc.NewClient(s.GRPCAddr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	hc, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, hc.Status)

	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx), "stop is idempotent")
}
