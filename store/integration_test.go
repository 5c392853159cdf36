package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/leaf/connector"
	"github.com/ceyewan/leaf/db"
	"github.com/ceyewan/leaf/segment"
	"github.com/ceyewan/leaf/store"
	"github.com/ceyewan/leaf/testkit"
	"github.com/ceyewan/leaf/xerrors"
)

type registrar interface {
	segment.Store
	Register(ctx context.Context, tag string, step int, desc string) error
}

// exerciseStore 两个 allocator 共用一个 store 时号段不重叠
func exerciseStore(t *testing.T, s registrar) {
	ctx := testkit.NewContext(t, time.Minute)
	tag := "order-" + testkit.NewID()
	require.NoError(t, s.Register(ctx, tag, 50, "integration"))

	alloc, err := s.BumpAndFetch(ctx, tag)
	require.NoError(t, err)
	assert.Equal(t, int64(51), alloc.MaxID)

	alloc, err = s.BumpByAndFetch(ctx, tag, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(251), alloc.MaxID)
	assert.Equal(t, int64(50), alloc.Step)

	_, err = s.BumpAndFetch(ctx, "missing-"+testkit.NewID())
	assert.True(t, xerrors.Is(err, store.ErrTagNotFound))

	cfg := segment.DefaultConfig()
	cfg.RefreshInterval = time.Hour
	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{})
		wg   sync.WaitGroup
	)
	for i := 0; i < 2; i++ {
		a, err := segment.New(s, cfg, segment.WithLogger(testkit.NewLogger()))
		require.NoError(t, err)
		require.NoError(t, a.Start(ctx))
		t.Cleanup(a.Stop)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				id, err := a.Get(ctx, tag)
				if xerrors.Is(err, segment.ErrBothSegmentsExhausted) {
					j--
					continue
				}
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				_, dup := seen[id]
				seen[id] = struct{}{}
				mu.Unlock()
				assert.False(t, dup, "duplicate id %d", id)
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 1000)

	records, err := s.ListAllocationRecords(ctx)
	require.NoError(t, err)
	var found bool
	for _, r := range records {
		if r.Tag == tag {
			found = true
			assert.Equal(t, "integration", r.Description)
		}
	}
	assert.True(t, found)
}

func newGormStore(t *testing.T, conn connector.DatabaseConnector) *store.Gorm {
	database, err := db.New(conn, &db.Config{}, db.WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	s, err := store.NewGorm(database, store.WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	require.NoError(t, s.AutoMigrate(context.Background()))
	return s
}

func TestGormStore_MySQL_Integration(t *testing.T) {
	exerciseStore(t, newGormStore(t, testkit.NewMySQLConnector(t)))
}

func TestGormStore_PostgreSQL_Integration(t *testing.T) {
	exerciseStore(t, newGormStore(t, testkit.NewPostgreSQLConnector(t)))
}

func TestRedisStore_Integration(t *testing.T) {
	s, err := store.NewRedis(testkit.NewRedisClient(t), "leaf-test", store.WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	exerciseStore(t, s)

	tags, err := s.ListTags(context.Background())
	require.NoError(t, err)
	assert.Len(t, tags, 1)
}
