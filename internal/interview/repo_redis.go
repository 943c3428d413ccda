package interview

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKV is the slice of the go-redis client the repo needs.
type RedisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisRepo stores the state as a JSON string under one key.
type RedisRepo struct {
	client RedisKV
	key    string
}

// NewRedisRepo constructs a RedisRepo.
func NewRedisRepo(client RedisKV, key string) *RedisRepo {
	if key == "" {
		key = "interview:state"
	}
	return &RedisRepo{client: client, key: key}
}

// Load reads the state key.
func (r *RedisRepo) Load(ctx context.Context) (State, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, ErrNotFound
	}
	if err != nil {
		return State{}, err
	}
	return decodeState(data)
}

// Save overwrites the state key without expiry.
func (r *RedisRepo) Save(ctx context.Context, st State) error {
	payload, err := encodeState(st)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key, payload, 0).Err()
}
