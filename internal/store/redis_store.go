package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	followersCountKeyPrefix = "microblog:followers:"
	hotKeyScoresKey         = "microblog:hotkey:scores"
)

// FollowStore caches follower counts and tracks which users are read
// most often.
type FollowStore interface {
	GetFollowersCount(ctx context.Context, userID uint) (int64, bool, error)
	SetFollowersCount(ctx context.Context, userID uint, count int64) error
	CondIncrFollowersCount(ctx context.Context, userID uint) error
	CondDecrFollowersCount(ctx context.Context, userID uint) error
	RecordAccess(ctx context.Context, userID uint) error
	GetTopHotKeys(ctx context.Context, n int64) ([]uint, error)
	ResetHotKeyScores(ctx context.Context) error
	Close() error
}

// RedisFollowStore implements FollowStore backed by Redis.
type RedisFollowStore struct {
	client *redis.Client
}

// NewRedisFollowStore connects to Redis and verifies the connection.
func NewRedisFollowStore(ctx context.Context, address, password string, db int) (*RedisFollowStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisFollowStore{client: client}, nil
}

// NewRedisFollowStoreFromClient wraps an existing client.
func NewRedisFollowStoreFromClient(client *redis.Client) *RedisFollowStore {
	return &RedisFollowStore{client: client}
}

func followersCountKey(userID uint) string {
	return followersCountKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}

// GetFollowersCount returns the cached followers count for a user.
// Returns (count, true, nil) on hit, (0, false, nil) on miss.
func (s *RedisFollowStore) GetFollowersCount(ctx context.Context, userID uint) (int64, bool, error) {
	val, err := s.client.Get(ctx, followersCountKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis get followers count: %w", err)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse followers count: %w", err)
	}
	return count, true, nil
}

// SetFollowersCount overwrites the cached count.
func (s *RedisFollowStore) SetFollowersCount(ctx context.Context, userID uint, count int64) error {
	if err := s.client.Set(ctx, followersCountKey(userID), count, 0).Err(); err != nil {
		return fmt.Errorf("redis set followers count: %w", err)
	}
	return nil
}

// condIncrScript increments the key only if it exists.
var condIncrScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
  return redis.call("INCR", key)
end
return 0
`)

// condDecrScript decrements the key only if it exists and stays >= 0.
var condDecrScript = redis.NewScript(`
local key = KEYS[1]
if redis.call("EXISTS", key) == 1 then
  local val = tonumber(redis.call("GET", key))
  if val and val > 0 then
    return redis.call("DECR", key)
  end
end
return 0
`)

// CondIncrFollowersCount increments the cached count if one is cached.
// A missing key stays missing so the next read loads the real count.
func (s *RedisFollowStore) CondIncrFollowersCount(ctx context.Context, userID uint) error {
	err := condIncrScript.Run(ctx, s.client, []string{followersCountKey(userID)}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis cond incr followers count: %w", err)
	}
	return nil
}

// CondDecrFollowersCount decrements the cached count if one is cached.
func (s *RedisFollowStore) CondDecrFollowersCount(ctx context.Context, userID uint) error {
	err := condDecrScript.Run(ctx, s.client, []string{followersCountKey(userID)}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis cond decr followers count: %w", err)
	}
	return nil
}

// RecordAccess bumps the user's score in the hot key sorted set.
func (s *RedisFollowStore) RecordAccess(ctx context.Context, userID uint) error {
	member := strconv.FormatUint(uint64(userID), 10)
	if err := s.client.ZIncrBy(ctx, hotKeyScoresKey, 1, member).Err(); err != nil {
		return fmt.Errorf("redis record access: %w", err)
	}
	return nil
}

// GetTopHotKeys returns the n most accessed user ids.
func (s *RedisFollowStore) GetTopHotKeys(ctx context.Context, n int64) ([]uint, error) {
	members, err := s.client.ZRevRange(ctx, hotKeyScoresKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get top hot keys: %w", err)
	}

	ids := make([]uint, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// ResetHotKeyScores deletes the hot key sorted set.
func (s *RedisFollowStore) ResetHotKeyScores(ctx context.Context) error {
	if err := s.client.Del(ctx, hotKeyScoresKey).Err(); err != nil {
		return fmt.Errorf("redis reset hot key scores: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisFollowStore) Close() error {
	return s.client.Close()
}

var _ FollowStore = (*RedisFollowStore)(nil)
