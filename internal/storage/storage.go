// Package storage provides file-based JSON key-value storage for
// session records. Keys are path slices mapped onto the filesystem;
// writes are atomic (temp file plus rename).
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound is returned when no record exists at a key.
var ErrNotFound = errors.New("not found")

// Store is a file-backed KV store. One user drives one session at a
// time, so per-key in-process mutexes are enough; there is no
// cross-process locking.
type Store struct {
	basePath string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a store rooted at basePath. The directory is created
// lazily on first write.
func New(basePath string) *Store {
	return &Store{
		basePath: basePath,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *Store) keyToFile(key []string) string {
	parts := append([]string{s.basePath}, key...)
	return filepath.Join(parts...) + ".json"
}

// Get reads the record at key into v. Returns ErrNotFound when the
// record does not exist.
func (s *Store) Get(ctx context.Context, key []string, v any) error {
	data, err := os.ReadFile(s.keyToFile(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("read %s: %w", strings.Join(key, "/"), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", strings.Join(key, "/"), err)
	}
	return nil
}

// Put writes v at key atomically: marshal, write to a temp file, rename.
func (s *Store) Put(ctx context.Context, key []string, v any) error {
	filePath := s.keyToFile(key)

	lock := s.lockFor(filePath)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", strings.Join(key, "/"), err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", strings.Join(key, "/"), err)
	}

	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", strings.Join(key, "/"), err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", strings.Join(key, "/"), err)
	}
	return nil
}

// Delete removes the record at key. Deleting a missing record is not
// an error.
func (s *Store) Delete(ctx context.Context, key []string) error {
	filePath := s.keyToFile(key)

	lock := s.lockFor(filePath)
	lock.Lock()
	defer lock.Unlock()

	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", strings.Join(key, "/"), err)
	}
	return nil
}

// List returns the record names directly under a key prefix.
func (s *Store) List(ctx context.Context, key []string) ([]string, error) {
	parts := append([]string{s.basePath}, key...)
	entries, err := os.ReadDir(filepath.Join(parts...))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list %s: %w", strings.Join(key, "/"), err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			names = append(names, name)
		} else if strings.HasSuffix(name, ".json") {
			names = append(names, strings.TrimSuffix(name, ".json"))
		}
	}
	return names, nil
}

func (s *Store) lockFor(filePath string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[filePath]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[filePath] = lock
	}
	return lock
}
