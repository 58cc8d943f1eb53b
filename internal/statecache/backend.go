// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

package statecache

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-hclog"

	"stockpulse/cli/internal/keychain"
	"stockpulse/cli/internal/xdg"
)

// KV is the persistence backend contract for the store. Get returns
// (nil, nil) when no value exists for the key.
type KV interface {
	Set(key string, data []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
}

// Open picks the best available backend: OS keychain first, then a file in
// the XDG state dir. When neither is available it returns nil, which the
// store treats as "no persistence".
func Open(log hclog.Logger) KV {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if km, err := keychain.NewManager(); err == nil {
		return &keychainKV{km: km}
	} else {
		log.Debug("keychain unavailable, falling back to state file", "error", err)
	}
	if dir, err := xdg.StateDir(); err == nil {
		return &fileKV{dir: dir}
	} else {
		log.Warn("state dir unavailable, auth cache disabled", "error", err)
	}
	return nil
}

// keychainKV adapts the keychain manager to the KV contract.
type keychainKV struct {
	km *keychain.Manager
}

func (k *keychainKV) Set(key string, data []byte) error { return k.km.Set(key, data) }

func (k *keychainKV) Get(key string) ([]byte, error) {
	data, err := k.km.Get(key)
	if errors.Is(err, keychain.ErrNotFound) {
		return nil, nil
	}
	return data, err
}

func (k *keychainKV) Delete(key string) error { return k.km.Delete(key) }

// fileKV stores each key as a private file in the XDG state directory.
type fileKV struct {
	dir string
}

func (f *fileKV) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *fileKV) Set(key string, data []byte) error {
	return os.WriteFile(f.path(key), data, 0o600)
}

func (f *fileKV) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

func (f *fileKV) Delete(key string) error {
	err := os.Remove(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// MemoryKV is an in-memory backend for tests.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
	// FailWrites makes Set return an error, simulating quota exhaustion.
	FailWrites bool
}

// NewMemoryKV creates an empty in-memory backend.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Set(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return errors.New("storage quota exceeded")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.data[key] = cp
	return nil
}

func (m *MemoryKV) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
