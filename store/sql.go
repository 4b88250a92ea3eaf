package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/k11techlab/testsmith/internal/database"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// =============================================================================
// 🗄️ SQL 后端（postgres / mysql / sqlite，经 GORM）
// =============================================================================

// EntryRecord context_entries 表的行模型
type EntryRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Key       string    `gorm:"column:correlation_key;size:191;not null;uniqueIndex:idx_context_key_seq,priority:1"`
	Seq       int64     `gorm:"not null;uniqueIndex:idx_context_key_seq,priority:2"`
	Role      string    `gorm:"size:32;not null"`
	Content   string    `gorm:"type:text"`
	Timestamp time.Time `gorm:"not null"`
}

// TableName implements gorm's tabler.
func (EntryRecord) TableName() string { return "context_entries" }

func (r EntryRecord) entry() Entry {
	return Entry{Key: r.Key, Seq: r.Seq, Role: r.Role, Content: r.Content, Timestamp: r.Timestamp.UTC()}
}

// Migrate 创建或升级上下文表
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&EntryRecord{}); err != nil {
		return fmt.Errorf("failed to migrate context_entries: %w", err)
	}
	return nil
}

// SQLBackend 基于连接池管理器的 SQL 后端
type SQLBackend struct {
	driver string
	pool   *database.PoolManager
	logger *zap.Logger
}

// NewSQLBackend 在已打开的连接池上创建后端，并执行表迁移
func NewSQLBackend(ctx context.Context, driver string, pool *database.PoolManager, logger *zap.Logger) (*SQLBackend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := Migrate(ctx, pool.DB()); err != nil {
		return nil, err
	}
	return &SQLBackend{
		driver: driver,
		pool:   pool,
		logger: logger.With(zap.String("component", "sql_store")),
	}, nil
}

// Name implements Backend.
func (b *SQLBackend) Name() string { return b.driver }

// Insert implements Backend.
func (b *SQLBackend) Insert(ctx context.Context, entry Entry) error {
	rec := EntryRecord{
		Key:       entry.Key,
		Seq:       entry.Seq,
		Role:      entry.Role,
		Content:   entry.Content,
		Timestamp: entry.Timestamp,
	}
	return b.pool.WithTransactionRetry(ctx, 3, func(tx *gorm.DB) error {
		return tx.Create(&rec).Error
	})
}

// Find implements Backend.
func (b *SQLBackend) Find(ctx context.Context, key string) ([]Entry, error) {
	var recs []EntryRecord
	err := b.pool.DB().WithContext(ctx).
		Where("correlation_key = ?", key).
		Order("seq ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("sql find failed: %w", err)
	}
	entries := make([]Entry, 0, len(recs))
	for _, r := range recs {
		entries = append(entries, r.entry())
	}
	return entries, nil
}

// Last implements Backend.
func (b *SQLBackend) Last(ctx context.Context, key string) (Entry, bool, error) {
	var rec EntryRecord
	err := b.pool.DB().WithContext(ctx).
		Where("correlation_key = ?", key).
		Order("seq DESC").
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("sql last failed: %w", err)
	}
	return rec.entry(), true, nil
}

// Keys implements Backend.
func (b *SQLBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	var all []string
	err := b.pool.DB().WithContext(ctx).
		Model(&EntryRecord{}).
		Distinct("correlation_key").
		Pluck("correlation_key", &all).Error
	if err != nil {
		return nil, fmt.Errorf("sql keys failed: %w", err)
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
func (b *SQLBackend) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

// Close implements Backend.
func (b *SQLBackend) Close() error {
	return b.pool.Close()
}
