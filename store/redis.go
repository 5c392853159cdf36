package store

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/leaf/clog"
	"github.com/ceyewan/leaf/segment"
	"github.com/ceyewan/leaf/xerrors"
)

const defaultRedisPrefix = "leaf"

// bumpScript KEYS[1]=tag hash，ARGV[1]=增量（0 表示使用配置的 step），ARGV[2]=update_time 毫秒
var bumpScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
local step = tonumber(redis.call('HGET', KEYS[1], 'step'))
local by = tonumber(ARGV[1])
if by <= 0 then
	by = step
end
local max = redis.call('HINCRBY', KEYS[1], 'max_id', by)
redis.call('HSET', KEYS[1], 'update_time', ARGV[2])
return {max, step}
`)

// registerScript KEYS[1]=tag hash，KEYS[2]=tag 集合
var registerScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], 'max_id', 1, 'step', ARGV[2], 'description', ARGV[3], 'update_time', ARGV[4])
redis.call('SADD', KEYS[2], ARGV[1])
return 1
`)

// Redis 基于 Redis 的号段存储
//
// 每个 tag 一个 hash {prefix}:{tag}，字段 max_id、step、description、update_time；
// 所有 tag 登记在集合 {prefix}:tags 中。
type Redis struct {
	client redis.UniversalClient
	prefix string
	logger clog.Logger
	now    func() time.Time
}

var _ segment.Store = (*Redis)(nil)

// NewRedis 创建 Redis 号段存储，prefix 为空时使用 "leaf"
func NewRedis(client redis.UniversalClient, prefix string, opts ...Option) (*Redis, error) {
	if client == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "redis client is nil")
	}
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	o := applyOptions(opts)
	return &Redis{client: client, prefix: prefix, logger: o.logger, now: o.now}, nil
}

func (s *Redis) tagKey(tag string) string {
	return s.prefix + ":" + tag
}

func (s *Redis) tagsKey() string {
	return s.prefix + ":tags"
}

// Register 登记一个 tag，max_id 从 1 开始；已存在时保持原记录不变
func (s *Redis) Register(ctx context.Context, tag string, step int, desc string) error {
	if err := validateTag(tag); err != nil {
		return err
	}
	if step <= 0 {
		return xerrors.Wrapf(ErrInvalidStep, "tag %q step %d", tag, step)
	}

	created, err := registerScript.Run(ctx, s.client,
		[]string{s.tagKey(tag), s.tagsKey()},
		tag, step, desc, s.now().UnixMilli(),
	).Int64()
	if err != nil {
		return xerrors.Wrapf(err, "register tag %q", tag)
	}
	if created == 1 {
		s.logger.InfoContext(ctx, "tag registered", clog.String("tag", tag), clog.Int("step", step))
	}
	return nil
}

func (s *Redis) ListTags(ctx context.Context) ([]string, error) {
	tags, err := s.client.SMembers(ctx, s.tagsKey()).Result()
	if err != nil {
		return nil, xerrors.Wrap(err, "list tags")
	}
	sort.Strings(tags)
	return tags, nil
}

func (s *Redis) BumpAndFetch(ctx context.Context, tag string) (segment.Allocation, error) {
	return s.bump(ctx, tag, 0)
}

func (s *Redis) BumpByAndFetch(ctx context.Context, tag string, step int64) (segment.Allocation, error) {
	if step <= 0 {
		return segment.Allocation{}, xerrors.Wrapf(ErrInvalidStep, "tag %q step %d", tag, step)
	}
	return s.bump(ctx, tag, step)
}

func (s *Redis) bump(ctx context.Context, tag string, by int64) (segment.Allocation, error) {
	vals, err := bumpScript.Run(ctx, s.client, []string{s.tagKey(tag)}, by, s.now().UnixMilli()).Int64Slice()
	if err != nil {
		if xerrors.Is(err, redis.Nil) {
			err = ErrTagNotFound
		}
		return segment.Allocation{}, xerrors.Wrapf(err, "bump tag %q", tag)
	}
	if len(vals) != 2 {
		return segment.Allocation{}, xerrors.Wrapf(xerrors.ErrInvalidInput, "bump tag %q: unexpected reply %v", tag, vals)
	}
	return segment.Allocation{MaxID: vals[0], Step: vals[1]}, nil
}

func (s *Redis) ListAllocationRecords(ctx context.Context) ([]segment.AllocRecord, error) {
	tags, err := s.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return []segment.AllocRecord{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(tags))
	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, tag := range tags {
			cmds[i] = p.HGetAll(ctx, s.tagKey(tag))
		}
		return nil
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "load tag hashes")
	}

	records := make([]segment.AllocRecord, 0, len(tags))
	for i, tag := range tags {
		fields := cmds[i].Val()
		if len(fields) == 0 {
			// 集合里有但 hash 已被删除
			continue
		}
		records = append(records, parseRecord(tag, fields))
	}
	return records, nil
}

func parseRecord(tag string, fields map[string]string) segment.AllocRecord {
	maxID, _ := strconv.ParseInt(fields["max_id"], 10, 64)
	step, _ := strconv.ParseInt(fields["step"], 10, 64)
	ms, _ := strconv.ParseInt(fields["update_time"], 10, 64)
	return segment.AllocRecord{
		Tag:         tag,
		MaxID:       maxID,
		Step:        step,
		Description: fields["description"],
		UpdateTime:  time.UnixMilli(ms),
	}
}
