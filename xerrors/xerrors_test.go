package xerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_Unit(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "tag %s", "order"))

	base := errors.New("not found")
	wrapped := Wrapf(base, "tag %s", "order")
	require.Error(t, wrapped)
	assert.Equal(t, "tag order: not found", wrapped.Error())
	assert.True(t, Is(wrapped, base))
}

func TestWithCode_Unit(t *testing.T) {
	assert.Nil(t, WithCode(nil, "x"))

	base := errors.New("segment: unknown key")
	coded := WithCode(base, "unknown_key")
	assert.Equal(t, "[unknown_key] segment: unknown key", coded.Error())
	assert.Equal(t, "unknown_key", GetCode(coded))

	// 外层包装后仍能提取错误码
	wrapped := Wrap(coded, "get id")
	assert.Equal(t, "unknown_key", GetCode(wrapped))
	assert.True(t, Is(wrapped, base))

	assert.Equal(t, "", GetCode(base))
}

func TestCombine_Unit(t *testing.T) {
	assert.Nil(t, Combine(nil, nil))

	e1 := errors.New("e1")
	assert.Same(t, e1, Combine(nil, e1))

	e2 := errors.New("e2")
	joined := Combine(e1, nil, e2)
	assert.True(t, Is(joined, e1))
	assert.True(t, Is(joined, e2))
}

func TestMust_Unit(t *testing.T) {
	assert.Equal(t, 42, Must(42, nil))
	assert.Panics(t, func() { Must(0, errors.New("boom")) })
}
