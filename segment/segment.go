package segment

import (
	"fmt"
	"sync/atomic"
)

// Segment 一段连续的可用号 [cursor, max)
//
// 补充时先写 cursor 再写 max，读者看到新 max 时 cursor 一定已经就位。
type Segment struct {
	cursor atomic.Int64
	max    atomic.Int64
	step   atomic.Int64
}

// Value 下一个待分配的号
func (s *Segment) Value() int64 { return s.cursor.Load() }

// Max 号段上界（不含）
func (s *Segment) Max() int64 { return s.max.Load() }

// Step 本次填充的大小
func (s *Segment) Step() int64 { return s.step.Load() }

// Idle 剩余可用量，耗尽后可能为负
func (s *Segment) Idle() int64 {
	return s.max.Load() - s.cursor.Load()
}

// take 领取一个号，ok=false 表示号段已耗尽
func (s *Segment) take() (int64, bool) {
	v := s.cursor.Add(1) - 1
	return v, v < s.max.Load()
}

func (s *Segment) fill(maxID, step int64) {
	s.cursor.Store(maxID - step)
	s.max.Store(maxID)
	s.step.Store(step)
}

func (s *Segment) String() string {
	return fmt.Sprintf("Segment(value:%d,max:%d,step:%d)", s.Value(), s.Max(), s.Step())
}
