package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKey is the sorted set holding local history entries, scored by
// submission time.
const redisKey = "gradekeeper:history"

// RedisBackend stores entries in a Redis sorted set, for setups where
// several machines share one local history.
type RedisBackend struct {
	client *redis.Client
}

var _ Backend = (*RedisBackend)(nil)

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	// Addr is the Redis server address (e.g. "localhost:6379").
	Addr string

	// Password authenticates to Redis. Empty for no auth.
	Password string

	// DB is the Redis database number.
	DB int
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return &RedisBackend{client: client}, nil
}

// Append stores one entry, scored by its submission time.
func (r *RedisBackend) Append(ctx context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}
	err = r.client.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(entry.SubmittedAt.Unix()),
		Member: data,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

// List returns all entries, oldest first.
func (r *RedisBackend) List(ctx context.Context) ([]*Entry, error) {
	members, err := r.client.ZRangeByScore(ctx, redisKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	entries := make([]*Entry, 0, len(members))
	for _, m := range members {
		var entry Entry
		if err := json.Unmarshal([]byte(m), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode history entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

// Prune removes entries submitted before the cutoff.
func (r *RedisBackend) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	// The cutoff is exclusive, ZRemRangeByScore's max is inclusive.
	max := strconv.FormatInt(olderThan.Unix()-1, 10)
	n, err := r.client.ZRemRangeByScore(ctx, redisKey, "-inf", max).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return int(n), nil
}

// Close closes the Redis connection.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
