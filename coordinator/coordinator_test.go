package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/magiconair/properties"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/leaf/xerrors"
)

var errUnreachable = xerrors.New("registry unreachable")

// memRegistry 内存版 Registry，counters 记录各父节点的下一个序号
type memRegistry struct {
	mu       sync.Mutex
	nodes    map[string][]byte
	counters map[string]int64
	down     bool
	puts     int
}

func newMemRegistry() *memRegistry {
	return &memRegistry{nodes: make(map[string][]byte), counters: make(map[string]int64)}
}

func (r *memRegistry) setDown(down bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.down = down
}

func (r *memRegistry) Exists(_ context.Context, p string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return false, errUnreachable
	}
	_, ok := r.nodes[p]
	return ok, nil
}

func (r *memRegistry) EnsureParent(_ context.Context, p string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return errUnreachable
	}
	if _, ok := r.nodes[p]; !ok {
		r.nodes[p] = nil
	}
	return nil
}

func (r *memRegistry) CreateSequential(_ context.Context, prefix string, data []byte) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return "", errUnreachable
	}
	parent := path.Dir(prefix)
	seq := r.counters[parent]
	r.counters[parent] = seq + 1
	node := fmt.Sprintf("%s%010d", prefix, seq)
	r.nodes[node] = data
	return node, nil
}

func (r *memRegistry) Get(_ context.Context, p string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return nil, errUnreachable
	}
	data, ok := r.nodes[p]
	if !ok {
		return nil, ErrNodeNotFound
	}
	return data, nil
}

func (r *memRegistry) Put(_ context.Context, p string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return errUnreachable
	}
	r.nodes[p] = data
	r.puts++
	return nil
}

func (r *memRegistry) Children(_ context.Context, parent string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return nil, errUnreachable
	}
	var out []string
	for k := range r.nodes {
		if name, ok := strings.CutPrefix(k, parent+"/"); ok && !strings.Contains(name, "/") {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *memRegistry) endpoint(t *testing.T, node string) Endpoint {
	t.Helper()
	r.mu.Lock()
	data := r.nodes[node]
	r.mu.Unlock()
	var ep Endpoint
	require.NoError(t, json.Unmarshal(data, &ep))
	return ep
}

func testConfig(t *testing.T, port int) *Config {
	return &Config{
		Name:              "com.example.leaf",
		IP:                "10.0.0.1",
		Port:              port,
		CacheDir:          t.TempDir(),
		RetryElapsed:      50 * time.Millisecond,
		HeartbeatDelay:    10 * time.Millisecond,
		HeartbeatInterval: 20 * time.Millisecond,
	}
}

func newCoordinator(t *testing.T, reg Registry, cfg *Config, opts ...Option) *Coordinator {
	t.Helper()
	c, err := New(reg, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Stop)
	return c
}

func TestNew_Validate_Unit(t *testing.T) {
	_, err := New(nil, &Config{Name: "x", Port: 1})
	assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput))

	_, err = New(newMemRegistry(), &Config{Port: 1, IP: "10.0.0.1"})
	assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput), "name is required")

	_, err = New(newMemRegistry(), &Config{Name: "x", IP: "10.0.0.1"})
	assert.True(t, xerrors.Is(err, xerrors.ErrInvalidInput), "port is required")

	c, err := New(newMemRegistry(), &Config{Name: "x", IP: "10.0.0.1", Port: 8080})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:8080", c.Addr())
}

func TestCoordinator_DistinctWorkers_Unit(t *testing.T) {
	ctx := context.Background()
	reg := newMemRegistry()

	seen := make(map[int64]string)
	for port := 8080; port < 8085; port++ {
		c := newCoordinator(t, reg, testConfig(t, port))
		id, err := c.Resolve(ctx)
		require.NoError(t, err)
		_, dup := seen[id]
		assert.False(t, dup, "worker id %d reused", id)
		seen[id] = c.Addr()

		assert.Equal(t, fmt.Sprintf("/snowflake/com.example.leaf/forever/%s-%010d", c.Addr(), id), c.Node())
		assert.False(t, c.FromCache())
	}
	assert.Len(t, seen, 5)
	assert.Contains(t, seen, int64(0))
	assert.Contains(t, seen, int64(4))
}

func TestCoordinator_RestartReusesNode_Unit(t *testing.T) {
	ctx := context.Background()
	reg := newMemRegistry()

	_, err := newCoordinator(t, reg, testConfig(t, 9000)).Resolve(ctx)
	require.NoError(t, err)

	cfg := testConfig(t, 9001)
	first := newCoordinator(t, reg, cfg)
	id, err := first.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	first.Stop()

	restarted := newCoordinator(t, reg, testConfig(t, 9001))
	again, err := restarted.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, first.Node(), restarted.Node())
}

func TestCoordinator_ClockRegressionOnRestart_Unit(t *testing.T) {
	ctx := context.Background()
	reg := newMemRegistry()
	now := time.Now()

	c := newCoordinator(t, reg, testConfig(t, 9100), WithClock(func() time.Time { return now }))
	_, err := c.Resolve(ctx)
	require.NoError(t, err)
	c.Stop()

	cfg := testConfig(t, 9100)
	require.NoError(t, writeCache(cacheFile(cfg.CacheDir, cfg.Name, cfg.Port), 0))
	behind := newCoordinator(t, reg, cfg, WithClock(func() time.Time { return now.Add(-time.Minute) }))
	_, err = behind.Resolve(ctx)
	assert.True(t, xerrors.Is(err, ErrClockRegressionOnRestart))
	_, ok := behind.WorkerID()
	assert.False(t, ok, "regression on restart never falls back to the cache")
}

func TestCoordinator_UnreachableUsesCache_Unit(t *testing.T) {
	ctx := context.Background()
	reg := newMemRegistry()
	cfg := testConfig(t, 9200)

	c := newCoordinator(t, reg, cfg)
	id, err := c.Resolve(ctx)
	require.NoError(t, err)
	c.Stop()

	content, err := os.ReadFile(cacheFile(cfg.CacheDir, cfg.Name, cfg.Port))
	require.NoError(t, err)
	cached := properties.MustLoadString(string(content))
	assert.Equal(t, fmt.Sprint(id), cached.MustGetString("workerID"))

	reg.setDown(true)
	offline := newCoordinator(t, reg, testConfig(t, 9200))
	offline.cacheFile = c.cacheFile
	got, err := offline.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.True(t, offline.FromCache())
	assert.Empty(t, offline.Node())
}

func TestCoordinator_UnreachableWithoutCache_Unit(t *testing.T) {
	reg := newMemRegistry()
	reg.setDown(true)

	c := newCoordinator(t, reg, testConfig(t, 9300))
	_, err := c.Resolve(context.Background())
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, ErrCoordinationUnavailable))
	assert.True(t, xerrors.Is(err, ErrCacheMissing))
	assert.True(t, xerrors.Is(err, errUnreachable))
}

func TestCoordinator_Bounds_Unit(t *testing.T) {
	ctx := context.Background()
	reg := newMemRegistry()
	cfg := testConfig(t, 9400)
	reg.nodes["/snowflake/com.example.leaf/forever"] = nil
	reg.counters["/snowflake/com.example.leaf/forever"] = 1024

	_, err := newCoordinator(t, reg, cfg).Resolve(ctx)
	assert.True(t, xerrors.Is(err, ErrBoundsViolation))

	reg.setDown(true)
	cfg = testConfig(t, 9401)
	require.NoError(t, writeCache(cacheFile(cfg.CacheDir, cfg.Name, cfg.Port), 2048))
	_, err = newCoordinator(t, reg, cfg).Resolve(ctx)
	assert.True(t, xerrors.Is(err, ErrBoundsViolation))
}

func TestCoordinator_Heartbeat_Unit(t *testing.T) {
	ctx := context.Background()
	reg := newMemRegistry()

	var (
		mu    sync.Mutex
		clock = time.Now()
	)
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}
	advance := func(d time.Duration) {
		mu.Lock()
		clock = clock.Add(d)
		mu.Unlock()
	}

	c := newCoordinator(t, reg, testConfig(t, 9500), WithClock(now))
	_, err := c.Resolve(ctx)
	require.NoError(t, err)
	created := reg.endpoint(t, c.Node()).Timestamp

	advance(time.Second)
	require.Eventually(t, func() bool {
		return reg.endpoint(t, c.Node()).Timestamp > created
	}, time.Second, 5*time.Millisecond)

	// 时钟回拨期间不上报
	advance(-time.Hour)
	time.Sleep(30 * time.Millisecond)
	reg.mu.Lock()
	puts := reg.puts
	reg.mu.Unlock()
	time.Sleep(100 * time.Millisecond)
	reg.mu.Lock()
	assert.Equal(t, puts, reg.puts)
	reg.mu.Unlock()

	c.Stop()
	c.Stop()
}

func TestReadCache_Unit(t *testing.T) {
	file := cacheFile(t.TempDir(), "leaf", 8080)
	_, err := readCache(file)
	assert.True(t, xerrors.Is(err, ErrCacheMissing))

	require.NoError(t, writeCache(file, 17))
	id, err := readCache(file)
	require.NoError(t, err)
	assert.Equal(t, int64(17), id)

	require.NoError(t, os.WriteFile(file, []byte("# leaf\n\nworkerID = 5\n"), 0o644))
	id, err = readCache(file)
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)

	require.NoError(t, os.WriteFile(file, []byte("workerID=abc"), 0o644))
	_, err = readCache(file)
	assert.True(t, xerrors.Is(err, ErrCacheMissing))

	require.NoError(t, os.WriteFile(file, []byte("# only a comment\nnodeID=3\n"), 0o644))
	_, err = readCache(file)
	assert.True(t, xerrors.Is(err, ErrCacheMissing))

	require.NoError(t, writeCache(file, 1023))
	content, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(content), "workerID", "key keeps its case")
	id, err = readCache(file)
	require.NoError(t, err)
	assert.Equal(t, int64(1023), id)
}

func TestSplitNode_Unit(t *testing.T) {
	addr, seq, ok := splitNode("10.0.0.1:8080-0000000012")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1:8080", addr)
	assert.Equal(t, int64(12), seq)

	for _, bad := range []string{"", "10.0.0.1:8080", "10.0.0.1:8080-", "-12", "a-b"} {
		_, _, ok := splitNode(bad)
		assert.False(t, ok, bad)
	}
}
