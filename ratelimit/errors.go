package ratelimit

import "github.com/ceyewan/leaf/xerrors"

var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("ratelimit: config is nil")

	// ErrKeyEmpty 限流键为空
	ErrKeyEmpty = xerrors.New("ratelimit: key is empty")

	// ErrInvalidLimit 限流规则无效
	ErrInvalidLimit = xerrors.New("ratelimit: invalid limit")

	// ErrClosed 限流器已关闭
	ErrClosed = xerrors.New("ratelimit: limiter closed")
)
