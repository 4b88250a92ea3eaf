package store

import (
	"context"
	"fmt"

	"github.com/k11techlab/testsmith/config"
	"github.com/k11techlab/testsmith/internal/database"
	"github.com/k11techlab/testsmith/internal/retry"
	"go.uber.org/zap"
)

// OpenBackend 按配置打开上下文存储后端。持久化后端按有界指数退避重试连接；
// 仍失败且允许回退时，记录告警并返回内存后端。
func OpenBackend(ctx context.Context, cfg config.ContextStoreConfig, logger *zap.Logger) (Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case "", "memory":
		return NewMemoryBackend(), nil
	case "redis", "mongo", "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported context store driver %q", cfg.Driver)
	}

	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.ConnectRetries

	backend, err := retry.Do(ctx, policy, logger, func(ctx context.Context) (Backend, error) {
		return connect(ctx, cfg, logger)
	})
	if err == nil {
		return backend, nil
	}

	if !cfg.FallbackToMemory {
		return nil, fmt.Errorf("context store %q unavailable: %w", cfg.Driver, err)
	}
	logger.Warn("context store unavailable, falling back to in-memory store",
		zap.String("driver", cfg.Driver),
		zap.Error(err),
	)
	return NewMemoryBackend(), nil
}

func connect(ctx context.Context, cfg config.ContextStoreConfig, logger *zap.Logger) (Backend, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedisBackend(ctx, cfg.Redis, logger)
	case "mongo":
		return NewMongoBackend(ctx, cfg.Mongo, logger)
	case "postgres", "mysql", "sqlite":
		pool, err := database.Open(cfg.Driver, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			_ = pool.Close()
			return nil, fmt.Errorf("failed to reach %s: %w", cfg.Driver, err)
		}
		backend, err := NewSQLBackend(ctx, cfg.Driver, pool, logger)
		if err != nil {
			_ = pool.Close()
			return nil, err
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unsupported context store driver %q", cfg.Driver)
	}
}
