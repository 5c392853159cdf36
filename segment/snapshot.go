package segment

import (
	"context"
	"sort"
)

// SegmentView 号段的只读视图
type SegmentView struct {
	Value int64 `json:"value"`
	Max   int64 `json:"max"`
	Step  int64 `json:"step"`
	Idle  int64 `json:"idle"`
}

// BufferView buffer 的只读视图，供 /cache 展示
type BufferView struct {
	Tag         string         `json:"tag"`
	Initialized bool           `json:"initialized"`
	Pos         int            `json:"pos"`
	NextReady   bool           `json:"next_ready"`
	State       string         `json:"state"`
	Step        int64          `json:"step"`
	MinStep     int64          `json:"min_step"`
	Segments    [2]SegmentView `json:"segments"`
}

// Snapshot 所有 buffer 的视图，按 tag 排序
func (a *Allocator) Snapshot() []BufferView {
	a.mu.RLock()
	buffers := make([]*Buffer, 0, len(a.buffers))
	for _, b := range a.buffers {
		buffers = append(buffers, b)
	}
	a.mu.RUnlock()

	views := make([]BufferView, 0, len(buffers))
	for _, b := range buffers {
		views = append(views, b.view())
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Tag < views[j].Tag })
	return views
}

func (b *Buffer) view() BufferView {
	b.tuneMu.Lock()
	step, minStep := b.step, b.minStep
	b.tuneMu.Unlock()

	b.mu.RLock()
	defer b.mu.RUnlock()

	v := BufferView{
		Tag:         b.tag,
		Initialized: b.initialized.Load(),
		Pos:         b.pos,
		NextReady:   b.standbyReady,
		State:       b.stateLocked().String(),
		Step:        step,
		MinStep:     minStep,
	}
	for i, s := range b.segments {
		v.Segments[i] = SegmentView{Value: s.Value(), Max: s.Max(), Step: s.Step(), Idle: s.Idle()}
	}
	return v
}

// Records 透传 store 中的原始记录，供 /db 展示
func (a *Allocator) Records(ctx context.Context) ([]AllocRecord, error) {
	return a.store.ListAllocationRecords(ctx)
}
