package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const violationTTL = time.Hour

// RedisStore handles Redis operations for rate limiting and IP blocking.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func rateWindowKey(key string, now time.Time, window time.Duration) string {
	return fmt.Sprintf("%s:%d", key, now.Unix()/int64(window.Seconds()))
}

func blockedKey(ip string) string {
	return "blocked:ip:" + ip
}

func violationsKey(ip string) string {
	return "violations:ip:" + ip
}

// HitRateLimit records a request against key and returns how many requests
// were already recorded inside the current window.
func (s *RedisStore) HitRateLimit(ctx context.Context, key string, window time.Duration) (int64, error) {
	now := time.Now()
	windowKey := rateWindowKey(key, now, window)

	pipe := s.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, windowKey, "-inf", strconv.FormatInt(now.Add(-window).UnixMilli(), 10))
	count := pipe.ZCard(ctx, windowKey)
	pipe.ZAdd(ctx, windowKey, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: strconv.FormatInt(now.UnixNano(), 10),
	})
	pipe.Expire(ctx, windowKey, window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return count.Val(), nil
}

// RecordViolation increments the violation counter for an IP and returns the new total.
func (s *RedisStore) RecordViolation(ctx context.Context, ip string) (int64, error) {
	key := violationsKey(ip)
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	s.client.Expire(ctx, key, violationTTL)
	return count, nil
}

// IsBlocked checks if an IP is blocked.
func (s *RedisStore) IsBlocked(ctx context.Context, ip string) bool {
	exists, _ := s.client.Exists(ctx, blockedKey(ip)).Result()
	return exists > 0
}

// Block blocks an IP for the specified duration.
func (s *RedisStore) Block(ctx context.Context, ip string, duration time.Duration, reason string) error {
	return s.client.Set(ctx, blockedKey(ip), reason, duration).Err()
}
