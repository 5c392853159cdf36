package store

import (
	"context"
	"time"

	"github.com/maypok86/otter/v2"

	"github.com/ceyewan/leaf/segment"
	"github.com/ceyewan/leaf/xerrors"
)

const recordsKey = "records"

// recordCacheStore 缓存 ListAllocationRecords，避免监控页刷新直接打到数据库
type recordCacheStore struct {
	segment.Store
	cache *otter.Cache[string, []segment.AllocRecord]
}

// WithRecordCache 以写入时间为准缓存 ttl，ttl <= 0 时原样返回 s
func WithRecordCache(s segment.Store, ttl time.Duration) (segment.Store, error) {
	if s == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "store is nil")
	}
	if ttl <= 0 {
		return s, nil
	}

	cache, err := otter.New(&otter.Options[string, []segment.AllocRecord]{
		MaximumSize:      1,
		ExpiryCalculator: otter.ExpiryWriting[string, []segment.AllocRecord](ttl),
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to build otter cache")
	}
	return &recordCacheStore{Store: s, cache: cache}, nil
}

func (s *recordCacheStore) ListAllocationRecords(ctx context.Context) ([]segment.AllocRecord, error) {
	if records, ok := s.cache.GetIfPresent(recordsKey); ok {
		return records, nil
	}
	records, err := s.Store.ListAllocationRecords(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(recordsKey, records)
	return records, nil
}
