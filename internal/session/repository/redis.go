package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"moon-oracle/backend/internal/session/domain"
)

const (
	redisKeyPrefix   = "oracle:session:"
	redisFieldCount  = "count"
	redisFieldCreate = "created_at"
	redisFieldUpdate = "updated_at"
)

// incrementScript bumps the counter and stamps timestamps in one server-side step.
// Returns {count, created_at, updated_at}.
var incrementScript = redis.NewScript(`
local n = redis.call('HINCRBY', KEYS[1], 'count', 1)
redis.call('HSETNX', KEYS[1], 'created_at', ARGV[1])
redis.call('HSET', KEYS[1], 'updated_at', ARGV[1])
return {n, redis.call('HGET', KEYS[1], 'created_at'), ARGV[1]}
`)

// RedisRepository stores each session as a hash under oracle:session:<id>.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository creates a Redis-backed session repository.
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{
		client: client,
		prefix: redisKeyPrefix,
	}
}

// OpenRedis connects to addr and verifies the connection with a short ping.
func OpenRedis(ctx context.Context, addr, password string) (*RedisRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisRepository(client), nil
}

func (r *RedisRepository) key(id string) string {
	return r.prefix + id
}

// GetByID returns the session hash for id, or nil if absent.
func (r *RedisRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	fields, err := r.client.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("session repository: get %q: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	s := &domain.Session{ID: id}
	if s.Count, err = strconv.ParseInt(fields[redisFieldCount], 10, 64); err != nil {
		return nil, fmt.Errorf("session repository: get %q: bad count: %w", id, err)
	}
	s.CreatedAt = parseMillis(fields[redisFieldCreate])
	s.UpdatedAt = parseMillis(fields[redisFieldUpdate])
	return s, nil
}

// CreateIfAbsent sets count 0 and both timestamps only where missing, inside MULTI/EXEC.
func (r *RedisRepository) CreateIfAbsent(ctx context.Context, id string, at time.Time) error {
	key := r.key(id)
	ms := strconv.FormatInt(at.UTC().UnixMilli(), 10)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, redisFieldCount, 0)
		pipe.HSetNX(ctx, key, redisFieldCreate, ms)
		pipe.HSetNX(ctx, key, redisFieldUpdate, ms)
		return nil
	})
	if err != nil {
		return fmt.Errorf("session repository: create %q: %w", id, err)
	}
	return nil
}

// IncrementCount runs incrementScript; Redis executes scripts atomically.
func (r *RedisRepository) IncrementCount(ctx context.Context, id string, at time.Time) (*domain.Session, error) {
	ms := strconv.FormatInt(at.UTC().UnixMilli(), 10)
	res, err := incrementScript.Run(ctx, r.client, []string{r.key(id)}, ms).Slice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("session repository: increment %q: %w", id, err)
	}
	if len(res) != 3 {
		return nil, nil
	}
	count, ok := res[0].(int64)
	if !ok {
		return nil, nil
	}
	created, _ := res[1].(string)
	updated, _ := res[2].(string)
	return &domain.Session{
		ID:        id,
		Count:     count,
		CreatedAt: parseMillis(created),
		UpdatedAt: parseMillis(updated),
	}, nil
}

// PingContext pings Redis.
func (r *RedisRepository) PingContext(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func parseMillis(v string) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
