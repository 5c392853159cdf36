package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/leaf/segment"
	"github.com/ceyewan/leaf/xerrors"
)

var errDown = errors.New("connection refused")

type stubStore struct {
	bumpErr  error
	bumps    atomic.Int64
	listings atomic.Int64
}

func (s *stubStore) ListTags(context.Context) ([]string, error) {
	return []string{"order"}, nil
}

func (s *stubStore) BumpAndFetch(context.Context, string) (segment.Allocation, error) {
	n := s.bumps.Add(1)
	if s.bumpErr != nil {
		return segment.Allocation{}, s.bumpErr
	}
	return segment.Allocation{MaxID: n * 10, Step: 10}, nil
}

func (s *stubStore) BumpByAndFetch(ctx context.Context, tag string, _ int64) (segment.Allocation, error) {
	return s.BumpAndFetch(ctx, tag)
}

func (s *stubStore) ListAllocationRecords(context.Context) ([]segment.AllocRecord, error) {
	s.listings.Add(1)
	return []segment.AllocRecord{{Tag: "order", MaxID: 10, Step: 10}}, nil
}

func TestWithBreaker_Disabled_Unit(t *testing.T) {
	inner := &stubStore{}
	s, err := WithBreaker(inner, nil)
	require.NoError(t, err)
	assert.Same(t, inner, s)

	s, err = WithBreaker(inner, &BreakerConfig{Enabled: false})
	require.NoError(t, err)
	assert.Same(t, inner, s)

	_, err = WithBreaker(inner, &BreakerConfig{Enabled: true, FailureRatio: 2})
	assert.Error(t, err)
}

func TestWithBreaker_Trip_Unit(t *testing.T) {
	ctx := context.Background()
	inner := &stubStore{bumpErr: errDown}
	s, err := WithBreaker(inner, &BreakerConfig{
		Enabled:         true,
		MinimumRequests: 2,
		FailureRatio:    0.5,
		Timeout:         50 * time.Millisecond,
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = s.BumpAndFetch(ctx, "order")
		assert.True(t, xerrors.Is(err, errDown))
	}
	assert.Equal(t, "open", s.(*breakerStore).State())

	_, err = s.BumpByAndFetch(ctx, "order", 20)
	assert.True(t, xerrors.Is(err, ErrOpenState))
	assert.Equal(t, int64(2), inner.bumps.Load(), "open breaker must not reach the store")

	inner.bumpErr = nil
	assert.Eventually(t, func() bool {
		alloc, err := s.BumpAndFetch(ctx, "order")
		return err == nil && alloc.Step == 10
	}, time.Second, 20*time.Millisecond)
	assert.Equal(t, "closed", s.(*breakerStore).State())
}

func TestWithBreaker_IgnoresMissingTag_Unit(t *testing.T) {
	ctx := context.Background()
	inner := &stubStore{bumpErr: xerrors.Wrap(ErrTagNotFound, "tag \"x\"")}
	s, err := WithBreaker(inner, &BreakerConfig{Enabled: true, MinimumRequests: 2, FailureRatio: 0.5})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = s.BumpAndFetch(ctx, "x")
		assert.True(t, xerrors.Is(err, ErrTagNotFound))
	}
	assert.Equal(t, "closed", s.(*breakerStore).State())
	assert.Equal(t, int64(5), inner.bumps.Load())
}

func TestWithRecordCache_Unit(t *testing.T) {
	ctx := context.Background()
	inner := &stubStore{}

	s, err := WithRecordCache(inner, 0)
	require.NoError(t, err)
	assert.Same(t, inner, s)

	s, err = WithRecordCache(inner, time.Hour)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		records, err := s.ListAllocationRecords(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
	}
	assert.Equal(t, int64(1), inner.listings.Load())

	// 其它方法直接透传
	_, err = s.BumpAndFetch(ctx, "order")
	require.NoError(t, err)
	assert.Equal(t, int64(1), inner.bumps.Load())
}
