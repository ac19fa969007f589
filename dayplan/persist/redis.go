package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces snapshot keys
const DefaultRedisPrefix = "dayplan:snapshot:"

// RedisSink keeps the snapshot of one owner under a Redis key
type RedisSink struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisSink creates a sink for owner. A zero ttl keeps the key forever.
func NewRedisSink(client *redis.Client, owner string, ttl time.Duration) *RedisSink {
	return &RedisSink{client: client, key: DefaultRedisPrefix + owner, ttl: ttl}
}

// Key returns the Redis key the snapshot lives under
func (r *RedisSink) Key() string {
	return r.key
}

// Save implements Sink.Save
func (r *RedisSink) Save(ctx context.Context, sn Snapshot) error {
	data, err := json.Marshal(sn)
	if err != nil {
		return fmt.Errorf("snapshot marshal error: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("snapshot set error: %w", err)
	}
	return nil
}

// Load implements Sink.Load
func (r *RedisSink) Load(ctx context.Context) (Snapshot, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot get error: %w", err)
	}

	var sn Snapshot
	if err := json.Unmarshal(data, &sn); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot unmarshal error: %w", err)
	}
	return sn, nil
}

// Clear removes the snapshot
func (r *RedisSink) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}
