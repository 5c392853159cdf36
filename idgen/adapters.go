package idgen

import (
	"context"

	"github.com/ceyewan/leaf/segment"
	"github.com/ceyewan/leaf/snowflake"
)

type segmentGen struct {
	a *segment.Allocator
}

// NewSegment 号段模式，a 为 nil 时退化为 Zero
func NewSegment(a *segment.Allocator) IDGen {
	if a == nil {
		return Zero()
	}
	return segmentGen{a: a}
}

func (g segmentGen) Get(ctx context.Context, key string) (int64, error) {
	return g.a.Get(ctx, key)
}

type snowflakeGen struct {
	g *snowflake.Generator
}

// NewSnowflake 雪花模式，g 为 nil 时退化为 Zero
func NewSnowflake(g *snowflake.Generator) IDGen {
	if g == nil {
		return Zero()
	}
	return snowflakeGen{g: g}
}

func (g snowflakeGen) Get(ctx context.Context, _ string) (int64, error) {
	return g.g.NextID(ctx)
}
