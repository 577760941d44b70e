// Package storage provides the small key/value stores the editor uses to
// remember UI state: a session slot per page path and a long-lived local
// store for global toggles.
package storage

import (
	"errors"
	"sync"

	"github.com/vanderheijden86/ordermachine/pkg/debug"
	"github.com/vanderheijden86/ordermachine/pkg/metrics"
)

// KeyPrefix is prepended to every key written by the editor.
const KeyPrefix = "ContentEditor:"

var (
	// ErrNotFound is returned by Get when the key has no value.
	ErrNotFound = errors.New("storage: key not found")
)

// Store is a string-keyed blob store.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Key returns the prefixed storage key for name.
func Key(name string) string {
	return KeyPrefix + name
}

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Safe wraps a Store so that failures never reach the caller: failed reads
// look like missing keys and failed writes are dropped. Both are logged.
type Safe struct {
	inner   Store
	counter *metrics.Counter
}

// NewSafe wraps inner. counter may be nil.
func NewSafe(inner Store, counter *metrics.Counter) *Safe {
	return &Safe{inner: inner, counter: counter}
}

// Get returns the value for key and whether it was found.
func (s *Safe) Get(key string) ([]byte, bool) {
	if s == nil || s.inner == nil {
		return nil, false
	}
	v, err := s.inner.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			debug.Log("storage: read %s failed: %v", key, err)
		}
		if s.counter != nil {
			s.counter.Miss()
		}
		return nil, false
	}
	if s.counter != nil {
		s.counter.Hit()
	}
	return v, true
}

// Set writes value, dropping the write on failure.
func (s *Safe) Set(key string, value []byte) {
	if s == nil || s.inner == nil {
		return
	}
	if err := s.inner.Set(key, value); err != nil {
		debug.Log("storage: write %s failed: %v", key, err)
		return
	}
	if s.counter != nil {
		s.counter.Write()
	}
}

// Delete removes key, ignoring failures.
func (s *Safe) Delete(key string) {
	if s == nil || s.inner == nil {
		return
	}
	if err := s.inner.Delete(key); err != nil {
		debug.Log("storage: delete %s failed: %v", key, err)
	}
}
