package cache

import (
	"context"
	"errors"
	"sync"
)

// ErrCacheMiss 表示键不存在
var ErrCacheMiss = errors.New("cache: miss")

// VectorStore 嵌入向量缓存后端
type VectorStore interface {
	// Get 返回键对应的向量，未命中时返回 ErrCacheMiss
	Get(ctx context.Context, key string) ([]float64, error)

	// Put 存入向量，容量满时由实现决定淘汰策略
	Put(ctx context.Context, key string, vector []float64) error

	// Len 返回当前条目数
	Len() int
}

// =============================================================================
// 💾 内存 FIFO 存储
// =============================================================================

// MemoryStore 有界内存存储，按插入顺序淘汰（非 LRU，保证可预测）
type MemoryStore struct {
	capacity int
	entries  map[string][]float64
	order    []string
	mu       sync.Mutex
}

// NewMemoryStore 创建内存存储
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryStore{
		capacity: capacity,
		entries:  make(map[string][]float64, capacity),
		order:    make([]string, 0, capacity),
	}
}

// Get 实现 VectorStore.Get
func (s *MemoryStore) Get(_ context.Context, key string) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vec, ok := s.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	// 命中不改变淘汰顺序（插入序，非 LRU）
	out := make([]float64, len(vec))
	copy(out, vec)
	return out, nil
}

// Put 实现 VectorStore.Put
func (s *MemoryStore) Put(_ context.Context, key string, vector []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; ok {
		// 已存在：更新值，保持原插入位置
		stored := make([]float64, len(vector))
		copy(stored, vector)
		s.entries[key] = stored
		return nil
	}

	if len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.entries, oldest)
	}

	stored := make([]float64, len(vector))
	copy(stored, vector)
	s.entries[key] = stored
	s.order = append(s.order, key)
	return nil
}

// Len 实现 VectorStore.Len
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
