package cache

import (
	"container/list"
	"sync"
)

// Memory is an in-memory Cache that evicts least recently used entries
// once the total content size exceeds its limit.
type Memory struct {
	mu       sync.Mutex
	maxBytes int64
	bytes    int64
	lru      *list.List // front = most recently used
	items    map[string]*list.Element
}

type memoryItem struct {
	key     string
	content []byte
}

// NewMemory returns a cache holding at most maxBytes of content.
// Use 0 to disable the limit. Negative values are treated as 0.
func NewMemory(maxBytes int64) *Memory {
	if maxBytes < 0 {
		maxBytes = 0
	}
	return &Memory{
		maxBytes: maxBytes,
		lru:      list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get returns the content stored under key and marks it recently used.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.items[key]
	if !ok {
		return nil, false
	}
	m.lru.MoveToFront(el)
	return el.Value.(*memoryItem).content, true //nolint:errcheck // list only holds *memoryItem
}

// Put stores content under key, evicting older entries as needed.
// Content larger than the whole cache is not stored.
func (m *Memory) Put(key string, content []byte) {
	size := int64(len(content))
	if m.maxBytes > 0 && size > m.maxBytes {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.items[key]; ok {
		m.removeElement(el)
	}
	m.items[key] = m.lru.PushFront(&memoryItem{key: key, content: content})
	m.bytes += size
	m.evict()
}

// Delete removes key.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.items[key]; ok {
		m.removeElement(el)
	}
}

// Len returns the number of cached entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// MaxBytes returns the configured limit.
func (m *Memory) MaxBytes() int64 {
	return m.maxBytes
}

// SizeBytes returns the total size of cached content.
func (m *Memory) SizeBytes() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bytes
}

// evict drops least recently used entries until the cache fits its limit.
// m.mu must be held.
func (m *Memory) evict() {
	if m.maxBytes == 0 {
		return
	}
	for m.bytes > m.maxBytes {
		el := m.lru.Back()
		if el == nil {
			return
		}
		m.removeElement(el)
	}
}

func (m *Memory) removeElement(el *list.Element) {
	item := m.lru.Remove(el).(*memoryItem) //nolint:errcheck // list only holds *memoryItem
	delete(m.items, item.key)
	m.bytes -= int64(len(item.content))
}

var _ Cache = (*Memory)(nil)
