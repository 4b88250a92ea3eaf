package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/k11techlab/testsmith/config"
	"github.com/k11techlab/testsmith/internal/tlsutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// =============================================================================
// 💾 Redis 后端
// =============================================================================

// RedisBackend 每个关联键一个 LIST（JSON 编码的记录，RPUSH 追加），
// 另有一个 SET 保存全部键以支持前缀列表查询。
type RedisBackend struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// NewRedisBackend 连接 Redis 并返回后端
func NewRedisBackend(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*RedisBackend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		PoolSize:  cfg.PoolSize,
		TLSConfig: tlsutil.OptionalTLSConfig(cfg.TLS),
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "testsmith"
	}

	b := &RedisBackend{
		client: client,
		prefix: prefix,
		logger: logger.With(zap.String("component", "redis_store")),
	}
	b.logger.Info("redis context store connected",
		zap.String("addr", cfg.Addr),
		zap.Int("pool_size", cfg.PoolSize),
	)
	return b, nil
}

func (b *RedisBackend) listKey(key string) string { return b.prefix + ":ctx:" + key }
func (b *RedisBackend) indexKey() string { return b.prefix + ":ctx-keys" }

// Name implements Backend.
func (b *RedisBackend) Name() string { return "redis" }

// Insert implements Backend.
func (b *RedisBackend) Insert(ctx context.Context, entry Entry) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("redis store is closed")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal context entry: %w", err)
	}

	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, b.listKey(entry.Key), data)
		pipe.SAdd(ctx, b.indexKey(), entry.Key)
		return nil
	})
	if err != nil {
		b.logger.Error("context insert failed", zap.String("key", entry.Key), zap.Error(err))
		return fmt.Errorf("redis insert failed: %w", err)
	}
	return nil
}

// Find implements Backend.
func (b *RedisBackend) Find(ctx context.Context, key string) ([]Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("redis store is closed")
	}

	raw, err := b.client.LRange(ctx, b.listKey(key), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis find failed: %w", err)
	}
	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal context entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Last implements Backend.
func (b *RedisBackend) Last(ctx context.Context, key string) (Entry, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return Entry{}, false, fmt.Errorf("redis store is closed")
	}

	raw, err := b.client.LIndex(ctx, b.listKey(key), -1).Result()
	if err == redis.Nil {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("redis last failed: %w", err)
	}
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Entry{}, false, fmt.Errorf("failed to unmarshal context entry: %w", err)
	}
	return e, true, nil
}

// Keys implements Backend.
func (b *RedisBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("redis store is closed")
	}

	all, err := b.client.SMembers(ctx, b.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis keys failed: %w", err)
	}
	keys := all[:0]
	for _, k := range all {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Ping implements Backend.
func (b *RedisBackend) Ping(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("redis store is closed")
	}
	return b.client.Ping(ctx).Err()
}

// Close implements Backend.
func (b *RedisBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.logger.Info("closing redis context store")
	return b.client.Close()
}
