package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LJTian/AINewsHub/internal/logger"
)

// DefaultTTL 行情等外部数据的缓存时长
const DefaultTTL = 10 * time.Minute

// Cache 按 key 的 TTL 缓存；过期只按写入时间判断，不做其它淘汰
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Put(ctx context.Context, key string, value V)
}

type memoryEntry[V any] struct {
	storedAt time.Time
	value    V
}

// MemoryCache 进程内缓存。key 空间很小（代码 × 区间 × 粒度），因此不限制条数。
type MemoryCache[V any] struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]memoryEntry[V]
	now   func() time.Time
}

func NewMemoryCache[V any](ttl time.Duration) *MemoryCache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache[V]{ttl: ttl, items: make(map[string]memoryEntry[V]), now: time.Now}
}

func (c *MemoryCache[V]) Get(_ context.Context, key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	var zero V
	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		return zero, false
	}
	return e.value, true
}

func (c *MemoryCache[V]) Put(_ context.Context, key string, value V) {
	c.mu.Lock()
	c.items[key] = memoryEntry[V]{storedAt: c.now(), value: value}
	c.mu.Unlock()
}

// RedisCache 以 JSON 形式写入 Redis，过期交给 Redis 的 TTL
type RedisCache[V any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    logger.Logger
}

func NewRedisCache[V any](client *redis.Client, prefix string, ttl time.Duration, log logger.Logger) *RedisCache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &RedisCache[V]{client: client, prefix: prefix, ttl: ttl, log: log}
}

func (c *RedisCache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	bs, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("cache: redis get failed", logger.String("key", key), logger.Error(err))
		}
		return zero, false
	}
	var v V
	if err := json.Unmarshal(bs, &v); err != nil {
		c.log.Warn("cache: redis decode failed", logger.String("key", key), logger.Error(err))
		return zero, false
	}
	return v, true
}

func (c *RedisCache[V]) Put(ctx context.Context, key string, value V) {
	bs, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("cache: redis encode failed", logger.String("key", key), logger.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, bs, c.ttl).Err(); err != nil {
		c.log.Warn("cache: redis set failed", logger.String("key", key), logger.Error(err))
	}
}

// NewRedisClient 创建客户端并 ping 一次；ping 失败只告警，读写时按未命中处理
func NewRedisClient(addr string, log logger.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil && log != nil {
		log.Warn("redis ping failed", logger.String("addr", addr), logger.Error(err))
	}
	return rdb
}
