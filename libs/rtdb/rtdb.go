// Package rtdb is the realtime store shared by the web backend and the
// mobile clients: a tree of JSON documents addressed by /-delimited paths,
// backed by Redis. Documents under tenants/<tenant>/... are denormalized
// projections; the relational database stays the source of truth.
package rtdb

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("rtdb: path not found")

// Store reads and writes JSON documents at /-delimited paths. Set fully
// overwrites whatever was stored at the path before (last write wins).
type Store interface {
	Set(ctx context.Context, path string, value map[string]any) error
	Get(ctx context.Context, path string) (map[string]any, error)
	Delete(ctx context.Context, path string) error
}

// Join builds a /-delimited path from its segments.
func Join(parts ...string) string {
	return strings.Join(parts, "/")
}

type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(path string) string {
	if s.prefix == "" {
		return path
	}
	return s.prefix + "/" + path
}

func (s *RedisStore) Set(ctx context.Context, path string, value map[string]any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(path), data, 0).Err()
}

func (s *RedisStore) Get(ctx context.Context, path string) (map[string]any, error) {
	data, err := s.rdb.Get(ctx, s.key(path)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var value map[string]any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	return value, nil
}

func (s *RedisStore) Delete(ctx context.Context, path string) error {
	return s.rdb.Del(ctx, s.key(path)).Err()
}

func ReadyCheck(rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if rdb == nil {
			return errors.New("redis not configured")
		}
		return rdb.Ping(ctx).Err()
	}
}
