package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// updateRetries bounds the optimistic retry loop in RedisStore.Update.
const updateRetries = 16

// RedisStore backs the namespace with a Redis server shared by all clients.
// Update uses WATCH-based optimistic locking: the read-modify-write is
// retried until no other client has touched the key in between, which keeps
// the serialized-write guarantee of the Store contract.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: redis get: %w", err)
	}
	return value, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("store: redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("store: redis del: %w", err)
	}
	return nil
}

func (r *RedisStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	fullKey := r.prefix + key

	// fnErr separates an abort decided by the caller's function from a
	// transport failure, so domain errors propagate unwrapped.
	var fnErr error

	txn := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, fullKey).Bytes()
		if err == redis.Nil {
			cur = nil
		} else if err != nil {
			return err
		}

		next, err := fn(cur)
		if err != nil {
			fnErr = err
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, fullKey, next, 0)
			return nil
		})
		return err
	}

	for i := 0; i < updateRetries; i++ {
		fnErr = nil
		err := r.client.Watch(ctx, txn, fullKey)
		if err == redis.TxFailedErr {
			// another client modified the key, retry
			continue
		}
		if fnErr != nil {
			return fnErr
		}
		if err != nil {
			return fmt.Errorf("store: redis update: %w", err)
		}
		return nil
	}

	return fmt.Errorf("store: redis update: key %q contended after %d attempts", key, updateRetries)
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
