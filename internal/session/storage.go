package session

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"sync"

	"github.com/BurntSushi/toml"
)

// Storage is the key/value store resumption state is persisted to.
type Storage interface {
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
	Clear() error
}

// MemoryStorage is an in-process Storage.
type MemoryStorage struct {
	mu    sync.Mutex
	items map[string]string
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]string)}
}

func (m *MemoryStorage) GetItem(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *MemoryStorage) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MemoryStorage) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *MemoryStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.items)
	return nil
}

// FileStorage is a Storage backed by a flat TOML file, so that a CLI process
// can resume a session started by a previous run. Every mutation rewrites
// the file.
type FileStorage struct {
	path string

	mu    sync.Mutex
	items map[string]string
}

// OpenFileStorage loads path, creating an empty store when it does not exist.
func OpenFileStorage(path string) (*FileStorage, error) {
	fs := &FileStorage{path: path, items: make(map[string]string)}
	if _, err := toml.DecodeFile(path, &fs.items); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load session store %s: %w", path, err)
	}
	return fs, nil
}

func (f *FileStorage) GetItem(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.items[key]
	return v, ok, nil
}

func (f *FileStorage) SetItem(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[key] = value
	return f.flush()
}

func (f *FileStorage) RemoveItem(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[key]; !ok {
		return nil
	}
	delete(f.items, key)
	return f.flush()
}

func (f *FileStorage) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.items)
	return f.flush()
}

// flush must be called with f.mu held.
func (f *FileStorage) flush() error {
	tmp := f.path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write session store: %w", err)
	}
	if err := toml.NewEncoder(file).Encode(maps.Clone(f.items)); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode session store: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write session store: %w", err)
	}
	return os.Rename(tmp, f.path)
}
