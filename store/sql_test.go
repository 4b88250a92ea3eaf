package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/k11techlab/testsmith/config"
	"github.com/k11techlab/testsmith/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestSQL(t *testing.T) *SQLBackend {
	t.Helper()
	pool, err := database.Open("sqlite", config.DatabaseConfig{
		Name:         filepath.Join(t.TempDir(), "context.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)

	backend, err := NewSQLBackend(context.Background(), "sqlite", pool, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return backend
}

func TestSQLBackend_Store(t *testing.T) {
	exerciseBackend(t, setupTestSQL(t))
}

func TestSQLBackend_Name(t *testing.T) {
	assert.Equal(t, "sqlite", setupTestSQL(t).Name())
}

func TestSQLBackend_DuplicateSeqRejected(t *testing.T) {
	b := setupTestSQL(t)
	ctx := context.Background()

	require.NoError(t, b.Insert(ctx, Entry{Key: "k", Seq: 1, Role: "user"}))
	assert.Error(t, b.Insert(ctx, Entry{Key: "k", Seq: 1, Role: "user"}))
}

func TestMigrate_Idempotent(t *testing.T) {
	b := setupTestSQL(t)
	assert.NoError(t, Migrate(context.Background(), b.pool.DB()))
	assert.True(t, b.pool.DB().Migrator().HasTable(&EntryRecord{}))
}
