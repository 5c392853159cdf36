package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/leaf/xerrors"
)

func newTestLimiter(t *testing.T, rate float64, burst int) Limiter {
	t.Helper()
	l, err := New(&Config{Rate: rate, Burst: burst})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestNew_Validate_Unit(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrConfigNil)

	_, err = New(&Config{Rate: 0, Burst: 1})
	assert.True(t, xerrors.Is(err, ErrInvalidLimit))

	cfg := &Config{Rate: 10}
	l, err := New(cfg)
	require.NoError(t, err)
	defer l.Close()
	assert.Equal(t, 10, cfg.Burst, "burst defaults to rate")
}

func TestLimiter_Allow_Unit(t *testing.T) {
	ctx := context.Background()
	l := newTestLimiter(t, 1, 2)

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok, "burst exhausted")

	ok, err = l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, ok, "buckets are per key")

	_, err = l.Allow(ctx, "")
	assert.ErrorIs(t, err, ErrKeyEmpty)
	_, err = l.AllowN(ctx, "k", 0)
	assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput))

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	_, err = l.Allow(ctx, "10.0.0.1")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestLimiter_Sweep_Unit(t *testing.T) {
	l := newTestLimiter(t, 10, 10).(*standaloneLimiter)
	_, _ = l.Allow(context.Background(), "a")
	_, _ = l.Allow(context.Background(), "b")

	assert.Zero(t, l.sweep(time.Now(), time.Hour))
	assert.Equal(t, 2, l.sweep(time.Now().Add(2*time.Hour), time.Hour))

	_, ok := l.limiters.Load("a")
	assert.False(t, ok)
}

func TestGinMiddleware_Unit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware(newTestLimiter(t, 1, 1), nil))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do().Code)
	w := do()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"code":"rate_limited","message":"rate limit exceeded"}`, w.Body.String())
}
