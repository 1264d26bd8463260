// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// Store persists successful lookups under their fingerprint.
type Store interface {
	Get(ctx context.Context, key string) (Location, bool, error)
	Put(ctx context.Context, key string, location Location) error
	Close() error
}

// Fingerprint returns the cache key of address. Explicitly included parameters are appended
// in sorted order so the key does not depend on the order they were given in.
func Fingerprint(address string, params map[string]string) string {
	if len(params) == 0 {
		return address
	}
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var b strings.Builder
	b.WriteString(address)
	for _, key := range keys {
		b.WriteString("|")
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(params[key])
	}
	return b.String()
}

// MemoryStore is a Store that lives for the duration of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	cache map[string]Location
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: make(map[string]Location)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (Location, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	location, ok := m.cache[key]
	return location, ok, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, location Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = location
	return nil
}

// Len returns the number of cached entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cache)
}

func (m *MemoryStore) Close() error {
	return nil
}
