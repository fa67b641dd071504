package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository implements Repository on Redis. Each record is a JSON
// value under prefix+"node:<id>"; the ids live in the set prefix+"nodes" and
// the id counter in prefix+"next_id".
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository connects to redisURL and checks the connection.
func NewRedisRepository(redisURL string) (*RedisRepository, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisRepositoryWithClient(client), nil
}

// NewRedisRepositoryWithClient creates a repository from an existing client.
func NewRedisRepositoryWithClient(client *redis.Client) *RedisRepository {
	return &RedisRepository{
		client: client,
		prefix: "bubblemind:",
	}
}

func (s *RedisRepository) key(id int64) string {
	return s.prefix + "node:" + strconv.FormatInt(id, 10)
}

func (s *RedisRepository) idsKey() string { return s.prefix + "nodes" }

func (s *RedisRepository) NextID(ctx context.Context) (int64, error) {
	id, err := s.client.Incr(ctx, s.prefix+"next_id").Result()
	if err != nil {
		return 0, fmt.Errorf("next id: %w", err)
	}
	return id, nil
}

func (s *RedisRepository) Create(ctx context.Context, r Record) error {
	return s.save(ctx, "create", r)
}

func (s *RedisRepository) save(ctx context.Context, op string, r Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(r.ID), data, 0)
		pipe.SAdd(ctx, s.idsKey(), r.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s record %d: %w", op, r.ID, err)
	}
	return nil
}

func (s *RedisRepository) Get(ctx context.Context, id int64) (Record, error) {
	data, err := s.client.Get(ctx, s.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get record %d: %w", id, err)
	}
	var r Record
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return Record{}, fmt.Errorf("unmarshal record %d: %w", id, err)
	}
	return r, nil
}

func (s *RedisRepository) Update(ctx context.Context, r Record) error {
	n, err := s.client.Exists(ctx, s.key(r.ID)).Result()
	if err != nil {
		return fmt.Errorf("update record %d: %w", r.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return s.save(ctx, "update", r)
}

func (s *RedisRepository) Delete(ctx context.Context, id int64) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.key(id))
		pipe.SRem(ctx, s.idsKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisRepository) List(ctx context.Context) ([]Record, error) {
	ids, err := s.client.SMembers(ctx, s.idsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("list records: bad id %q: %w", raw, err)
		}
		keys = append(keys, s.key(id))
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	out := make([]Record, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue // removed between SMEMBERS and MGET
		}
		var r Record
		if err := json.Unmarshal([]byte(str), &r); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		out = append(out, r)
	}
	sortRecords(out)
	return out, nil
}

func (s *RedisRepository) Children(ctx context.Context, id int64) ([]Record, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return childrenOf(all, id), nil
}

// Close closes the Redis connection.
func (s *RedisRepository) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable.
func (s *RedisRepository) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
