// Package idgen 把号段模式与雪花模式统一成同一个接口，供 HTTP/gRPC 层按模式取号
//
//	var gen idgen.IDGen = idgen.Zero()
//	if cfg.Segment.Enable {
//		gen = idgen.NewSegment(allocator)
//	}
//	id, err := gen.Get(ctx, "order")
package idgen

import "context"

// IDGen 按 key 取号
type IDGen interface {
	// Get 雪花模式忽略 key
	Get(ctx context.Context, key string) (int64, error)
}

// Mode 取号模式
type Mode string

const (
	ModeSegment   Mode = "segment"
	ModeSnowflake Mode = "snowflake"
)

// Func 让普通函数满足 IDGen
type Func func(ctx context.Context, key string) (int64, error)

func (f Func) Get(ctx context.Context, key string) (int64, error) {
	return f(ctx, key)
}

type zero struct{}

// Zero 对任意 key 返回 0，用于未启用的模式
func Zero() IDGen {
	return zero{}
}

func (zero) Get(context.Context, string) (int64, error) {
	return 0, nil
}
