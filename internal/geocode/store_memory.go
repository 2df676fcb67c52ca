// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"slices"
	"sync"
	"time"
)

type memoryEntry struct {
	placemarks []Placemark
	expiry     time.Time
}

// MemoryStore keeps geocoding results in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	cache map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]Placemark, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.cache[key]
	if !ok || !time.Now().Before(entry.expiry) {
		return nil, false, nil
	}
	return slices.Clone(entry.placemarks), true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, placemarks []Placemark, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = memoryEntry{
		placemarks: slices.Clone(placemarks),
		expiry:     time.Now().Add(ttl),
	}
	return nil
}
