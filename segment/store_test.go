package segment

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ceyewan/leaf/xerrors"
)

var errStoreDown = xerrors.New("store down")

// memStore 内存版 Store，可注入故障并记录每次申请的步长
type memStore struct {
	mu      sync.Mutex
	rows    map[string]*AllocRecord
	tags    []string
	listErr error
	bumpErr error
	bumps   []int64
	delay   time.Duration
}

func newMemStore(steps map[string]int64) *memStore {
	s := &memStore{rows: make(map[string]*AllocRecord)}
	for tag, step := range steps {
		s.rows[tag] = &AllocRecord{Tag: tag, MaxID: 1, Step: step}
		s.tags = append(s.tags, tag)
	}
	sort.Strings(s.tags)
	return s
}

func (s *memStore) setTags(tags ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags = tags
	for _, t := range tags {
		if _, ok := s.rows[t]; !ok {
			s.rows[t] = &AllocRecord{Tag: t, MaxID: 1, Step: 100}
		}
	}
}

func (s *memStore) fail(list, bump error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listErr, s.bumpErr = list, bump
}

func (s *memStore) bumpSteps() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.bumps...)
}

func (s *memStore) ListTags(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]string(nil), s.tags...), nil
}

func (s *memStore) BumpAndFetch(ctx context.Context, tag string) (Allocation, error) {
	return s.bump(tag, 0)
}

func (s *memStore) BumpByAndFetch(ctx context.Context, tag string, step int64) (Allocation, error) {
	return s.bump(tag, step)
}

func (s *memStore) bump(tag string, step int64) (Allocation, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bumpErr != nil {
		return Allocation{}, s.bumpErr
	}
	row, ok := s.rows[tag]
	if !ok {
		return Allocation{}, fmt.Errorf("tag %s not found", tag)
	}
	if step == 0 {
		step = row.Step
	}
	row.MaxID += step
	s.bumps = append(s.bumps, step)
	return Allocation{MaxID: row.MaxID, Step: row.Step}, nil
}

func (s *memStore) ListAllocationRecords(context.Context) ([]AllocRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AllocRecord, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out, nil
}

// fakeClock 手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
