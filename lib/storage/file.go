// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/tidwall/jsonc"
)

// DefaultPath returns the path of the state file. Checks the
// LECTERN_STATE_FILE environment variable first, then falls back to
// $XDG_CONFIG_HOME/lectern/state.json and ~/.config/lectern/state.json.
func DefaultPath() string {
	if envPath := os.Getenv("LECTERN_STATE_FILE"); envPath != "" {
		return envPath
	}

	configDirectory := os.Getenv("XDG_CONFIG_HOME")
	if configDirectory == "" {
		homeDirectory, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "lectern-state.json")
		}
		configDirectory = filepath.Join(homeDirectory, ".config")
	}
	return filepath.Join(configDirectory, "lectern", "state.json")
}

// File is a Store backed by a JSON object on disk. Reads are served
// from the snapshot taken at the last open or write; writes merge into
// the current on-disk content.
type File struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

// OpenFile opens the state file at path. A missing file is an empty
// store; the file is created on the first write.
func OpenFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: path is required")
	}
	values, err := readStateFile(path)
	if err != nil {
		return nil, err
	}
	return &File{path: path, values: values}, nil
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// Get implements Store.
func (f *File) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[key]
	return value, ok
}

// Set implements Store.
func (f *File) Set(key, value string) error {
	return f.update(func(values map[string]string) {
		values[key] = value
	})
}

// Remove implements Store.
func (f *File) Remove(keys ...string) error {
	return f.update(func(values map[string]string) {
		for _, key := range keys {
			delete(values, key)
		}
	})
}

// Keys returns the stored keys in sorted order.
func (f *File) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.values))
	for key := range f.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// update re-reads the file, applies mutate, and writes the result.
// The in-memory snapshot is replaced only when the write succeeds.
func (f *File) update(mutate func(map[string]string)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := readStateFile(f.path)
	if err != nil {
		return err
	}
	mutate(values)
	if err := writeStateFile(f.path, values); err != nil {
		return err
	}
	f.values = values
	return nil
}

func readStateFile(path string) (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return values, nil
		}
		return nil, fmt.Errorf("storage: reading %s: %w", path, err)
	}
	if len(data) == 0 {
		return values, nil
	}

	// The file is hand-editable; tolerate comments and trailing commas.
	if err := json.Unmarshal(jsonc.ToJSON(data), &values); err != nil {
		return nil, fmt.Errorf("storage: parsing %s: %w", path, err)
	}
	return values, nil
}

func writeStateFile(path string, values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encoding state: %w", err)
	}
	data = append(data, '\n')

	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0700); err != nil {
		return fmt.Errorf("storage: creating directory %s: %w", directory, err)
	}

	temporary, err := os.CreateTemp(directory, ".state-*.json")
	if err != nil {
		return fmt.Errorf("storage: creating temporary file: %w", err)
	}
	temporaryPath := temporary.Name()
	defer os.Remove(temporaryPath)

	if err := temporary.Chmod(0600); err != nil {
		temporary.Close()
		return fmt.Errorf("storage: chmod %s: %w", temporaryPath, err)
	}
	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		return fmt.Errorf("storage: writing %s: %w", temporaryPath, err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("storage: closing %s: %w", temporaryPath, err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		return fmt.Errorf("storage: replacing %s: %w", path, err)
	}
	return nil
}
