package credentials

import (
	"fmt"
	"sync"
)

// MemoryManager keeps values for the life of the process.
type MemoryManager struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryManager creates an empty in-memory manager.
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{values: make(map[string]string)}
}

// Save implements Manager.
func (m *MemoryManager) Save(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Load implements Manager.
func (m *MemoryManager) Load(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return v, nil
}

// Delete implements Manager.
func (m *MemoryManager) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Name implements Manager.
func (m *MemoryManager) Name() string {
	return "memory"
}
