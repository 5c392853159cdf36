package segment

import (
	"context"
	"time"
)

// Allocation 一次号段申请的结果：store 中该 tag 更新后的 max_id 与配置的 step
type Allocation struct {
	MaxID int64
	Step  int64
}

// AllocRecord store 中一个 tag 的完整记录，用于监控展示
type AllocRecord struct {
	Tag         string    `json:"tag"`
	MaxID       int64     `json:"max_id"`
	Step        int64     `json:"step"`
	Description string    `json:"description"`
	UpdateTime  time.Time `json:"update_time"`
}

// Store 号段的持久化后端
//
// BumpAndFetch 与 BumpByAndFetch 必须是原子的：并发的多个实例对同一 tag
// 申请到的 (MaxID-step, MaxID] 区间互不重叠。
type Store interface {
	// ListTags 返回所有 tag，allocator 据此增删 buffer
	ListTags(ctx context.Context) ([]string, error)

	// BumpAndFetch 把 max_id 增加配置的 step，返回更新后的记录
	BumpAndFetch(ctx context.Context, tag string) (Allocation, error)

	// BumpByAndFetch 把 max_id 增加 step，返回更新后的记录（Step 仍为配置值）
	BumpByAndFetch(ctx context.Context, tag string, step int64) (Allocation, error)

	ListAllocationRecords(ctx context.Context) ([]AllocRecord, error)
}
