package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"mashub/api/internal/infra/cache"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const SWEEP_LOCK_KEY = "mashub:retry-sweep"

// Locker hands out exclusive leases. unlock is nil when ok is false.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}

// LockerService is the in-process lease, good for a single instance.
type LockerService struct {
	cache *cache.Cache
}

func NewLockerService(cache *cache.Cache) *LockerService {
	return &LockerService{cache: cache}
}

func (s *LockerService) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	if !s.cache.SetNX(key, token, ttl) {
		return nil, false, nil
	}
	return func() { s.cache.DelIf(key, token) }, true, nil
}

func (s *LockerService) IsLocked(key string) bool {
	return s.cache.Load(key) != nil // locked if not nil
}

var redisUnlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker shares the lease across instances. The ttl bounds how long a
// crashed holder blocks others.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (s *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()

	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		redisUnlockScript.Run(ctx, s.client, []string{key}, token)
	}, true, nil
}

// PostgresLocker uses a session advisory lock, held by one pooled
// connection until unlock. The ttl is not used: the lock dies with the
// session.
type PostgresLocker struct {
	pool *pgxpool.Pool
}

func NewPostgresLocker(pool *pgxpool.Pool) *PostgresLocker {
	return &PostgresLocker{pool: pool}
}

func (s *PostgresLocker) TryLock(ctx context.Context, key string, _ time.Duration) (func(), bool, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("pgx acquire: %w", err)
	}

	id := AdvisoryLockID(key)

	var ok bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", id).Scan(&ok); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("pg_try_advisory_lock: %w", err)
	}
	if !ok {
		conn.Release()
		return nil, false, nil
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", id); err != nil {
			// the session keeps the lock; drop the connection instead of pooling it
			conn.Conn().Close(ctx)
		}
		conn.Release()
	}, true, nil
}

func AdvisoryLockID(key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int64(h.Sum64())
}
