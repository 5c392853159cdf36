package segment

import "github.com/ceyewan/leaf/xerrors"

var (
	// ErrNotInitialized allocator 尚未完成首次加载，或已经 Stop
	ErrNotInitialized = xerrors.New("segment: allocator not initialized")

	// ErrUnknownKey tag 不在当前映射中
	ErrUnknownKey = xerrors.New("segment: unknown key")

	// ErrBothSegmentsExhausted 当前号段耗尽且备用号段未就绪
	ErrBothSegmentsExhausted = xerrors.New("segment: both segments exhausted")
)
