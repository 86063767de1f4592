package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	apperrors "github.com/saddiabu4/telegram-market/internal/errors"
)

const redisKeyPrefix = "storefront:slots:"

// RedisStore implements Store on top of Redis string keys.
// Slots are kept without expiry: cart and favorites are cleared only by
// explicit user action, never by TTL.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and pings it to fail early on bad config.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

// Load retrieves the raw contents of a slot.
// Returns ErrSlotNotFound if the slot has never been written.
func (r *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to load slot %s: %w", key, err)
	}
	return data, nil
}

// Save replaces the full contents of a slot.
func (r *RedisStore) Save(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, redisKeyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to save slot %s: %w", key, err)
	}
	return nil
}

// Delete removes a slot. Deleting an absent slot is not an error.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
