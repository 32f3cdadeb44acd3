// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain wraps the OS credential store used by the emitron CLI.
//
// Tokens and the serialized session record live under the "emitron" service
// namespace. On macOS the security(1) command is preferred; everywhere else the
// keyring library picks a native backend (Keychain, Credential Manager, Secret
// Service, KWallet or pass). Tests build a Manager over an in-memory ring.
package keychain

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

// ServiceName identifies our keychain namespace.
const ServiceName = "emitron"

// Keys used in the keychain.
const (
	KeyAccessToken   = "auth_access_token"
	KeyRefreshToken  = "auth_refresh_token"
	KeySessionRecord = "session_record"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("keychain: item not found")

// backend is the minimal string store both implementations satisfy.
type backend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// Manager serializes access to one backend.
type Manager struct {
	mu sync.RWMutex
	b  backend
}

var (
	globalMu      sync.Mutex
	globalManager *Manager
)

// NewManager opens the platform credential store.
func NewManager() (*Manager, error) {
	if runtime.GOOS == "darwin" {
		if sb, err := newSecurityBackend(); err == nil {
			return &Manager{b: sb}, nil
		}
	}
	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return NewManagerWithRing(ring), nil
}

// NewManagerWithRing builds a Manager over an already opened keyring.
func NewManagerWithRing(ring keyring.Keyring) *Manager {
	return &Manager{b: ringBackend{ring: ring}}
}

// GetManager returns the process-wide Manager, retrying after a failed open.
func GetManager() (*Manager, error) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalManager != nil {
		return globalManager, nil
	}
	m, err := NewManager()
	if err != nil {
		return nil, err
	}
	globalManager = m
	return m, nil
}

func openRing() (keyring.Keyring, error) {
	var allowed []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		allowed = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowed = []keyring.BackendType{keyring.WinCredBackend}
	case "linux", "freebsd", "openbsd":
		allowed = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.PassBackend,
		}
	default:
		return nil, fmt.Errorf("secure storage not supported on %s", runtime.GOOS)
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:             ServiceName,
		AllowedBackends:         allowed,
		PassPrefix:              ServiceName,
		WinCredPrefix:           ServiceName,
		LibSecretCollectionName: ServiceName,
		KWalletAppID:            ServiceName,
		KWalletFolder:           ServiceName,
	})
	if err != nil {
		if runtime.GOOS == "darwin" {
			return nil, errors.New("macOS Keychain unavailable; install 'pass' (brew install pass gnupg) and run 'pass init <gpg-key-id>'")
		}
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return ring, nil
}

// SaveTokens stores the non-empty tokens.
func (m *Manager) SaveTokens(accessToken, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if accessToken != "" {
		if err := m.b.Set(KeyAccessToken, accessToken); err != nil {
			return err
		}
	}
	if refreshToken != "" {
		if err := m.b.Set(KeyRefreshToken, refreshToken); err != nil {
			return err
		}
	}
	return nil
}

// LoadAccessToken returns the stored access token or ErrNotFound.
func (m *Manager) LoadAccessToken() (string, error) {
	return m.loadString(KeyAccessToken)
}

// LoadRefreshToken returns the stored refresh token or ErrNotFound.
func (m *Manager) LoadRefreshToken() (string, error) {
	return m.loadString(KeyRefreshToken)
}

// SaveSessionRecord stores the serialized session.
func (m *Manager) SaveSessionRecord(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.b.Set(KeySessionRecord, string(data))
}

// LoadSessionRecord returns the serialized session or ErrNotFound.
func (m *Manager) LoadSessionRecord() ([]byte, error) {
	s, err := m.loadString(KeySessionRecord)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// ClearAuth removes tokens and the session record. Missing items are ignored.
func (m *Manager) ClearAuth() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for _, k := range []string{KeyAccessToken, KeyRefreshToken, KeySessionRecord} {
		if err := m.b.Delete(k); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, fmt.Errorf("delete %s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) loadString(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, err := m.b.Get(key)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

// ringBackend adapts keyring.Keyring to backend.
type ringBackend struct {
	ring keyring.Keyring
}

func (r ringBackend) Set(key, value string) error {
	return r.ring.Set(keyring.Item{Key: key, Data: []byte(value), Label: ServiceName + " " + key})
}

func (r ringBackend) Get(key string) (string, error) {
	it, err := r.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return string(it.Data), nil
}

func (r ringBackend) Delete(key string) error {
	err := r.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return ErrNotFound
	}
	return err
}
