package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/k11techlab/testsmith/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("memory by default", func(t *testing.T) {
		b, err := OpenBackend(ctx, config.ContextStoreConfig{}, nil)
		require.NoError(t, err)
		assert.Equal(t, "memory", b.Name())
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		b, err := OpenBackend(ctx, config.ContextStoreConfig{
			Driver: "redis",
			Redis:  config.RedisConfig{Addr: mr.Addr()},
		}, zap.NewNop())
		require.NoError(t, err)
		defer b.Close()
		assert.Equal(t, "redis", b.Name())
	})

	t.Run("sqlite", func(t *testing.T) {
		b, err := OpenBackend(ctx, config.ContextStoreConfig{
			Driver:   "sqlite",
			Database: config.DatabaseConfig{Name: filepath.Join(t.TempDir(), "c.db")},
		}, zap.NewNop())
		require.NoError(t, err)
		defer b.Close()
		assert.Equal(t, "sqlite", b.Name())
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := OpenBackend(ctx, config.ContextStoreConfig{Driver: "cassandra", FallbackToMemory: true}, nil)
		assert.Error(t, err)
	})
}

func TestOpenBackend_FallbackToMemory(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.ContextStoreConfig{
		Driver:           "redis",
		FallbackToMemory: true,
		ConnectRetries:   1,
		Redis:            config.RedisConfig{Addr: addr},
	}

	b, err := OpenBackend(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "memory", b.Name())

	cfg.FallbackToMemory = false
	_, err = OpenBackend(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
