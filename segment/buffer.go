package segment

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Phase buffer 所处阶段
type Phase int

const (
	// PhaseUninit 尚未完成首次同步加载
	PhaseUninit Phase = iota
	// PhaseActive 正在从 Slot 发号，备用号段未准备
	PhaseActive
	// PhaseRefilling 正在从 Slot 发号，备用号段正在异步补充
	PhaseRefilling
	// PhaseSwitchPending 备用号段已就绪，当前号段耗尽时切换
	PhaseSwitchPending
)

func (p Phase) String() string {
	switch p {
	case PhaseUninit:
		return "uninit"
	case PhaseActive:
		return "active"
	case PhaseRefilling:
		return "refilling"
	case PhaseSwitchPending:
		return "switch_pending"
	default:
		return "unknown"
	}
}

// State buffer 的状态快照，Slot 为当前发号的号段下标
type State struct {
	Phase Phase
	Slot  int
}

func (s State) String() string {
	if s.Phase == PhaseUninit {
		return s.Phase.String()
	}
	return fmt.Sprintf("%s(%d)", s.Phase, s.Slot)
}

// Buffer 单个 tag 的双号段
//
// 锁的分工：
//   - mu 保护 pos 与 standbyReady，切换号段必须持有写锁
//   - refilling 是备用号段的唯一写权，CAS 成功者才能补充备用号段
//   - tuneMu 保护步长调整相关字段，补充号段期间持有
type Buffer struct {
	tag      string
	segments [2]*Segment

	mu           sync.RWMutex
	pos          int
	standbyReady bool

	initialized atomic.Bool
	initMu      sync.Mutex
	refilling   atomic.Bool

	tuneMu     sync.Mutex
	step       int64
	minStep    int64
	lastRefill time.Time
}

func newBuffer(tag string) *Buffer {
	return &Buffer{
		tag:      tag,
		segments: [2]*Segment{{}, {}},
	}
}

// Tag 返回 buffer 对应的 tag
func (b *Buffer) Tag() string { return b.tag }

// State 推导当前阶段
func (b *Buffer) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stateLocked()
}

func (b *Buffer) stateLocked() State {
	switch {
	case !b.initialized.Load():
		return State{Phase: PhaseUninit}
	case b.refilling.Load():
		return State{Phase: PhaseRefilling, Slot: b.pos}
	case b.standbyReady:
		return State{Phase: PhaseSwitchPending, Slot: b.pos}
	default:
		return State{Phase: PhaseActive, Slot: b.pos}
	}
}

func (b *Buffer) current() *Segment {
	return b.segments[b.pos]
}

func (b *Buffer) standby() *Segment {
	return b.segments[1-b.pos]
}

// switchActive 调用方持有写锁且 standbyReady 为 true
func (b *Buffer) switchActive() {
	b.pos = 1 - b.pos
	b.standbyReady = false
}

func (b *Buffer) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return fmt.Sprintf("Buffer{tag=%s, state=%s, segments=[%s, %s]}",
		b.tag, b.stateLocked(), b.segments[0], b.segments[1])
}
