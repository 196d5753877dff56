package state

import (
	"bytes"
	"sync"
)

type memoryKV struct {
	mu   sync.Mutex
	data map[string]map[string][]byte
}

// NewMemory returns a Store that lives only as long as the process.
func NewMemory() *Store {
	data := make(map[string]map[string][]byte, len(buckets))
	for _, b := range buckets {
		data[b] = make(map[string][]byte)
	}
	return newStore(&memoryKV{data: data})
}

func (m *memoryKV) Get(bucket, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[bucket][key]; ok {
		return bytes.Clone(v), nil
	}
	return nil, nil
}

func (m *memoryKV) Put(bucket, key string, val []byte) error {
	m.mu.Lock()
	m.data[bucket][key] = bytes.Clone(val)
	m.mu.Unlock()
	return nil
}

func (m *memoryKV) Delete(bucket, key string) error {
	m.mu.Lock()
	delete(m.data[bucket], key)
	m.mu.Unlock()
	return nil
}

func (m *memoryKV) Update(bucket, key string, fn func(old []byte) ([]byte, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var old []byte
	if v, ok := m.data[bucket][key]; ok {
		old = bytes.Clone(v)
	}
	next, err := fn(old)
	if err != nil {
		return err
	}
	if next == nil {
		delete(m.data[bucket], key)
		return nil
	}
	m.data[bucket][key] = bytes.Clone(next)
	return nil
}

func (m *memoryKV) Sweep(bucket string, drop func(key string, val []byte) bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, v := range m.data[bucket] {
		if drop(k, v) {
			delete(m.data[bucket], k)
			removed++
		}
	}
	return removed, nil
}

func (m *memoryKV) Close() error { return nil }
