package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yola1107/czech/internal/biz/room"
	"github.com/yola1107/czech/internal/conf"
)

const (
	defaultPoolSize    = 10
	defaultMinIdle     = 2
	defaultMaxLifetime = 2 * time.Minute
	defaultMaxIdleTime = 5 * time.Minute
)

// 只有更大的 seq 才写入, 同时维护按更新时间排序的索引
var saveScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'seq')
if cur and tonumber(cur) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'seq', ARGV[1], 'updated_at', ARGV[2], 'data', ARGV[3])
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[4])
return 1
`)

// RedisStore 每个房间一个 hash: {prefix}room:{id}; 索引 zset: {prefix}rooms
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

var _ room.Store = (*RedisStore)(nil)

// OpenRedis 连接并检查可用
func OpenRedis(c conf.Redis) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            c.Addr,
		Password:        c.Password,
		DB:              c.DB,
		DialTimeout:     c.DialTimeout.Std(),
		ReadTimeout:     c.ReadTimeout.Std(),
		WriteTimeout:    c.WriteTimeout.Std(),
		PoolSize:        defaultPoolSize,
		MinIdleConns:    defaultMinIdle,
		ConnMaxLifetime: defaultMaxLifetime,
		ConnMaxIdleTime: defaultMaxIdleTime,
	})
	ctx, cancel := context.WithTimeout(context.Background(), c.DialTimeout.Std())
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", c.Addr, err)
	}
	return NewRedisStore(rdb, c.Prefix), nil
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) roomKey(id string) string { return s.prefix + "room:" + id }

func (s *RedisStore) indexKey() string { return s.prefix + "rooms" }

func (s *RedisStore) Close() error { return s.rdb.Close() }

func (s *RedisStore) Save(ctx context.Context, snap *room.Snapshot) error {
	keys := []string{s.roomKey(snap.RoomID), s.indexKey()}
	err := saveScript.Run(ctx, s.rdb, keys, snap.Seq, toMillis(snap.UpdatedAt), snap.Data, snap.RoomID).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("save room %s: %w", snap.RoomID, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, roomID string) (*room.Snapshot, error) {
	vals, err := s.rdb.HMGet(ctx, s.roomKey(roomID), "seq", "updated_at", "data").Result()
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", roomID, err)
	}
	if vals[2] == nil {
		return nil, room.ErrSnapshotNotFound
	}
	snap, err := parseSnapshot(roomID, vals)
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", roomID, err)
	}
	return snap, nil
}

func parseSnapshot(roomID string, vals []any) (*room.Snapshot, error) {
	str := func(v any) string {
		s, _ := v.(string)
		return s
	}
	seq, err := strconv.ParseInt(str(vals[0]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad seq: %w", err)
	}
	ms, err := strconv.ParseInt(str(vals[1]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad updated_at: %w", err)
	}
	return &room.Snapshot{
		RoomID:    roomID,
		Seq:       seq,
		UpdatedAt: fromMillis(ms),
		Data:      []byte(str(vals[2])),
	}, nil
}

func (s *RedisStore) LoadAll(ctx context.Context) ([]*room.Snapshot, error) {
	ids, err := s.rdb.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	out := make([]*room.Snapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := s.Load(ctx, id)
		if errors.Is(err, room.ErrSnapshotNotFound) {
			// 索引残留
			s.rdb.ZRem(ctx, s.indexKey(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, roomID string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.roomKey(roomID))
		pipe.ZRem(ctx, s.indexKey(), roomID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete room %s: %w", roomID, err)
	}
	return nil
}

func (s *RedisStore) Prune(ctx context.Context, before time.Time) (int, error) {
	ids, err := s.rdb.ZRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(toMillis(before), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("prune rooms: %w", err)
	}
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

func (s *RedisStore) DeleteAll(ctx context.Context) error {
	ids, err := s.rdb.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("delete rooms: %w", err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.roomKey(id))
	}
	keys = append(keys, s.indexKey())
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete rooms: %w", err)
	}
	return nil
}
