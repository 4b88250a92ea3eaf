package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/k11techlab/testsmith/internal/metrics"
	"github.com/k11techlab/testsmith/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🗂️ 上下文存储
// =============================================================================

// Entry 历史中的一条记录
type Entry struct {
	Key       string    `json:"key"`
	Seq       int64     `json:"seq"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// History 某个关联键下按序号升序排列的全部记录
type History struct {
	Key     string  `json:"key"`
	Entries []Entry `json:"entries"`
}

// Last 返回最后一条记录
func (h *History) Last() (Entry, bool) {
	if h == nil || len(h.Entries) == 0 {
		return Entry{}, false
	}
	return h.Entries[len(h.Entries)-1], true
}

// Filter 列表查询条件
type Filter struct {
	// 键前缀（为空表示全部）
	Prefix string
	// 仅统计包含该角色记录的键
	Role string
	// 最大返回数量（0 表示不限制）
	Limit int
}

// Summary 列表查询中单个键的摘要
type Summary struct {
	Key       string    `json:"key"`
	Entries   int       `json:"entries"`
	LastRole  string    `json:"last_role"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrNotFound 键不存在
var ErrNotFound = errors.New("context key not found")

// Backend 持久化后端。实现需支持不同键的并发写入；同一键的追加由 Store 串行化。
type Backend interface {
	// Name 返回后端名称（memory/redis/mongo/postgres/mysql/sqlite）
	Name() string
	// Insert 写入一条已分配序号的记录
	Insert(ctx context.Context, entry Entry) error
	// Find 按序号升序返回某键的全部记录，键不存在时返回空切片
	Find(ctx context.Context, key string) ([]Entry, error)
	// Last 返回某键的最后一条记录
	Last(ctx context.Context, key string) (Entry, bool, error)
	// Keys 返回以 prefix 开头的全部键
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Ping 探活
	Ping(ctx context.Context) error
	// Close 释放连接
	Close() error
}

// Store 在 Backend 之上提供追加语义：同键串行、序号严格递增、时间戳单调不减。
type Store struct {
	backend   Backend
	locks     *KeyLock
	now       func() time.Time
	collector *metrics.Collector
	logger    *zap.Logger
}

// New 创建上下文存储
func New(backend Backend, collector *metrics.Collector, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backend:   backend,
		locks:     NewKeyLock(),
		now:       time.Now,
		collector: collector,
		logger:    logger.With(zap.String("component", "context_store"), zap.String("backend", backend.Name())),
	}
}

// Backend 返回底层后端名称
func (s *Store) Backend() string { return s.backend.Name() }

// Append 向 key 的历史追加一条记录并返回写入后的记录
func (s *Store) Append(ctx context.Context, key, role, content string) (Entry, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Entry{}, types.NewError(types.ErrInvalidRequest, "context key is required").
			WithHTTPStatus(http.StatusBadRequest)
	}
	if strings.TrimSpace(role) == "" {
		return Entry{}, types.NewError(types.ErrInvalidRequest, "context role is required").
			WithHTTPStatus(http.StatusBadRequest)
	}

	unlock := s.locks.Lock(key)
	defer unlock()

	start := time.Now()
	last, ok, err := s.backend.Last(ctx, key)
	if err != nil {
		s.record("last", err, start)
		return Entry{}, storeError("failed to read context history", err)
	}

	entry := Entry{Key: key, Seq: 1, Role: role, Content: content, Timestamp: s.now().UTC()}
	if ok {
		entry.Seq = last.Seq + 1
		if entry.Timestamp.Before(last.Timestamp) {
			entry.Timestamp = last.Timestamp
		}
	}

	err = s.backend.Insert(ctx, entry)
	s.record("insert", err, start)
	if err != nil {
		return Entry{}, storeError("failed to append context entry", err)
	}

	s.logger.Debug("context entry appended",
		zap.String("key", key),
		zap.Int64("seq", entry.Seq),
		zap.String("role", role))
	return entry, nil
}

// History 返回 key 的完整历史；键不存在时返回 NOT_FOUND
func (s *Store) History(ctx context.Context, key string) (*History, error) {
	start := time.Now()
	entries, err := s.backend.Find(ctx, key)
	s.record("find", err, start)
	if err != nil {
		return nil, storeError("failed to read context history", err)
	}
	if len(entries) == 0 {
		return nil, types.NewError(types.ErrNotFound, fmt.Sprintf("context key %q not found", key)).
			WithCause(ErrNotFound).
			WithHTTPStatus(http.StatusNotFound)
	}
	return &History{Key: key, Entries: entries}, nil
}

// List 按前缀/角色过滤列出键摘要，按键名排序
func (s *Store) List(ctx context.Context, filter Filter) ([]Summary, error) {
	start := time.Now()
	keys, err := s.backend.Keys(ctx, filter.Prefix)
	s.record("keys", err, start)
	if err != nil {
		return nil, storeError("failed to list context keys", err)
	}
	sort.Strings(keys)

	out := make([]Summary, 0, len(keys))
	for _, key := range keys {
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
		entries, err := s.backend.Find(ctx, key)
		if err != nil {
			return nil, storeError("failed to read context history", err)
		}
		if len(entries) == 0 || !hasRole(entries, filter.Role) {
			continue
		}
		last := entries[len(entries)-1]
		out = append(out, Summary{
			Key:       key,
			Entries:   len(entries),
			LastRole:  last.Role,
			UpdatedAt: last.Timestamp,
		})
	}
	return out, nil
}

// Ping 探活底层后端
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// Close 关闭底层后端
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) record(op string, err error, start time.Time) {
	if s.collector != nil {
		s.collector.RecordStoreOperation(s.backend.Name(), op, err, time.Since(start))
	}
}

func hasRole(entries []Entry, role string) bool {
	if role == "" {
		return true
	}
	for _, e := range entries {
		if e.Role == role {
			return true
		}
	}
	return false
}

func storeError(msg string, err error) *types.Error {
	return types.NewError(types.ErrStore, msg).
		WithCause(err).
		WithHTTPStatus(http.StatusServiceUnavailable).
		WithRetryable(true)
}
