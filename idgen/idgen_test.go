package idgen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/leaf/snowflake"
)

func TestZero_Unit(t *testing.T) {
	for _, gen := range []IDGen{Zero(), NewSegment(nil), NewSnowflake(nil)} {
		id, err := gen.Get(context.Background(), "anything")
		require.NoError(t, err)
		assert.Zero(t, id)
	}
}

func TestSnowflakeAdapter_Unit(t *testing.T) {
	g, err := snowflake.New(3, nil)
	require.NoError(t, err)
	gen := NewSnowflake(g)

	a, err := gen.Get(context.Background(), "ignored")
	require.NoError(t, err)
	b, err := gen.Get(context.Background(), "other")
	require.NoError(t, err)
	assert.Greater(t, b, a)
	assert.Equal(t, int64(3), snowflake.Parse(b, snowflake.DefaultEpoch).WorkerID)
}

func TestFunc_Unit(t *testing.T) {
	gen := Func(func(_ context.Context, key string) (int64, error) { return int64(len(key)), nil })
	id, err := gen.Get(context.Background(), "abcd")
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)
}

func TestNewUUIDV7_Unit(t *testing.T) {
	a, b := NewUUIDV7(), NewUUIDV7()
	assert.Len(t, a, 36)
	assert.Equal(t, byte('7'), a[14])
	assert.NotEqual(t, a, b)
}
