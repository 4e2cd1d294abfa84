package persist

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces RedisStore keys when no prefix is given.
const DefaultRedisPrefix = "bund:"

// RedisStore keeps entries in Redis:
//
//	<prefix>snap:<key>  => encoded snapshot
//	<prefix>idx:all     => SET of stored keys
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore on client.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) keySnapshot(key string) string {
	return r.prefix + "snap:" + key
}

func (r *RedisStore) keyIndex() string {
	return r.prefix + "idx:all"
}

func (r *RedisStore) List(ctx context.Context) ([]string, error) {
	keys, err := r.client.SMembers(ctx, r.keyIndex()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *RedisStore) Load(ctx context.Context, keys ...string) ([]Entry, error) {
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		v, err := r.client.Get(ctx, r.keySnapshot(k)).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, k)
		case err != nil:
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, k, err)
		}
		out = append(out, Entry{Key: k, Value: v})
	}
	return out, nil
}

func (r *RedisStore) Save(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}

	pipe := r.client.TxPipeline()
	for _, e := range entries {
		pipe.Set(ctx, r.keySnapshot(e.Key), e.Value, 0)
		pipe.SAdd(ctx, r.keyIndex(), e.Key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	pipe := r.client.TxPipeline()
	for _, k := range keys {
		pipe.Del(ctx, r.keySnapshot(k))
		pipe.SRem(ctx, r.keyIndex(), k)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("snapshot delete failed: %w", err)
	}
	return nil
}
