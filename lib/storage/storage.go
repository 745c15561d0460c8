// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"sort"
	"sync"
)

// Well-known keys.
const (
	// KeyAccessToken holds the opaque bearer token.
	KeyAccessToken = "access_token"
	// KeyRefreshToken holds the opaque refresh token.
	KeyRefreshToken = "refresh_token"
	// KeyUser holds the JSON-serialized user record.
	KeyUser = "user"
	// KeyTheme holds the literal "light" or "dark".
	KeyTheme = "theme"
)

// Store is a string key/value store. Implementations must be safe for
// concurrent use. Writes are last-write-wins per key.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool)

	// Set stores value under key.
	Set(key, value string) error

	// Remove deletes the given keys. Missing keys are not an error.
	Remove(keys ...string) error
}

// Memory is an in-process Store.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get implements Store.
func (m *Memory) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	return value, ok
}

// Set implements Store.
func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Remove implements Store.
func (m *Memory) Remove(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.values))
	for key := range m.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
