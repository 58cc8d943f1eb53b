// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides thread-safe access to the OS credential store.
// It holds the secrets the CLI must not write to plain files: the backend
// session cookie, the CSRF token, and the serialized auth-state cache.
//
// The package supports macOS Keychain, Windows Credential Manager, and the
// Secret Service / pass backends on Linux via the keyring library.
package keychain

import (
	"errors"
	"sync"

	"github.com/99designs/keyring"
)

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "stockpulse"

// Keys used for storing secrets in the OS keychain.
const (
	KeySessionCookie = "session_cookie"
	KeyCSRFToken     = "csrf_token"
)

// ErrNotFound is returned by Get when no value exists for a key.
var ErrNotFound = errors.New("keychain: key not found")

// Manager provides centralized, thread-safe operations on the OS keychain.
type Manager struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// NewManager opens the OS keyring and returns a manager around it.
func NewManager() (*Manager, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: ServiceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.WinCredBackend,
			keyring.SecretServiceBackend,
			keyring.PassBackend,
		},
		PassPrefix: ServiceName,
	})
	if err != nil {
		return nil, err
	}
	return &Manager{ring: ring}, nil
}

// Set stores a value under key.
func (m *Manager) Set(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ring.Set(keyring.Item{Key: key, Data: data})
}

// Get retrieves the value stored under key. Missing keys yield ErrNotFound.
func (m *Manager) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, err := m.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return it.Data, nil
}

// Delete removes the value stored under key. Deleting a missing key is not
// an error.
func (m *Manager) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}

// SaveSessionCookie stores the backend session cookie header.
func (m *Manager) SaveSessionCookie(cookie string) error {
	return m.Set(KeySessionCookie, []byte(cookie))
}

// LoadSessionCookie retrieves the backend session cookie header.
// Returns an empty string when none is stored.
func (m *Manager) LoadSessionCookie() (string, error) {
	data, err := m.Get(KeySessionCookie)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

// SaveCSRFToken stores the CSRF token.
func (m *Manager) SaveCSRFToken(token string) error {
	return m.Set(KeyCSRFToken, []byte(token))
}

// LoadCSRFToken retrieves the CSRF token, or empty when none is stored.
func (m *Manager) LoadCSRFToken() (string, error) {
	data, err := m.Get(KeyCSRFToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

// ClearSession removes the session cookie and CSRF token.
func (m *Manager) ClearSession() error {
	if err := m.Delete(KeySessionCookie); err != nil {
		return err
	}
	return m.Delete(KeyCSRFToken)
}
