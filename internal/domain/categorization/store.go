// Package categorization enriches expense transactions with a budget bucket:
// cache first, then local pattern rules, then the external classifier with
// retry and pacing.
package categorization

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/granaflow/grana-api/internal/domain/common"
)

// Store is the category cache: a description→category mapping that grows
// monotonically and is cleared only by explicit user action. Keys are always
// normalized with common.NormalizeDescription before reaching the store.
type Store interface {
	Get(key string) (common.Category, bool)
	Set(key string, cat common.Category) error
	Clear() error
}

// MemoryStore is an in-process Store used in tests and as a fallback when no
// cache path is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]common.Category
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]common.Category)}
}

func (s *MemoryStore) Get(key string) (common.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cat, ok := s.entries[key]
	return cat, ok
}

func (s *MemoryStore) Set(key string, cat common.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = cat
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]common.Category)
	return nil
}

// Len returns the number of cached entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// FileStore persists the cache as a single flat JSON object on disk,
// surviving restarts. Writes are serialized; entries never expire.
type FileStore struct {
	mu      sync.Mutex
	path    string
	entries map[string]common.Category
}

// OpenFileStore loads (or initializes) the cache file at path.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:    path,
		entries: make(map[string]common.Category),
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read category cache: %w", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.entries); err != nil {
			return nil, fmt.Errorf("corrupt category cache %s: %w", path, err)
		}
	}
	return s, nil
}

func (s *FileStore) Get(key string) (common.Category, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cat, ok := s.entries[key]
	return cat, ok
}

func (s *FileStore) Set(key string, cat common.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = cat
	return s.flushLocked()
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]common.Category)
	return s.flushLocked()
}

func (s *FileStore) flushLocked() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	// Write-then-rename keeps the cache readable if the process dies
	// mid-flush.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
