// MockBackend 的上下文存储后端测试模拟实现。
//
// 在内存后端之上支持按操作注入错误，并记录写入次数。
package mocks

import (
	"context"
	"sync"

	"github.com/k11techlab/testsmith/store"
)

// MockBackend 是 store.Backend 的模拟实现
type MockBackend struct {
	*store.MemoryBackend

	mu          sync.Mutex
	insertErr   error
	findErr     error
	failInserts int // 第 N 次写入起失败（0 表示不限）
	inserts     int
}

// NewMockBackend 创建新的 MockBackend
func NewMockBackend() *MockBackend {
	return &MockBackend{MemoryBackend: store.NewMemoryBackend()}
}

// WithInsertError 设置写入错误
func (m *MockBackend) WithInsertError(err error) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertErr = err
	return m
}

// WithInsertErrorAfter 前 n 次写入成功，之后返回 err
func (m *MockBackend) WithInsertErrorAfter(n int, err error) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failInserts = n
	m.insertErr = err
	return m
}

// WithFindError 设置读取错误
func (m *MockBackend) WithFindError(err error) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findErr = err
	return m
}

// Name implements store.Backend.
func (m *MockBackend) Name() string { return "mock" }

// Insert implements store.Backend.
func (m *MockBackend) Insert(ctx context.Context, entry store.Entry) error {
	m.mu.Lock()
	m.inserts++
	fail := m.insertErr != nil && (m.failInserts == 0 || m.inserts > m.failInserts)
	err := m.insertErr
	m.mu.Unlock()
	if fail {
		return err
	}
	return m.MemoryBackend.Insert(ctx, entry)
}

// Find implements store.Backend.
func (m *MockBackend) Find(ctx context.Context, key string) ([]store.Entry, error) {
	m.mu.Lock()
	err := m.findErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.MemoryBackend.Find(ctx, key)
}

// InsertCount 返回写入调用次数
func (m *MockBackend) InsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserts
}
