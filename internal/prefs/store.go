// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package prefs stores small user preferences (filters, sort order, the last
// permission refresh) as a JSON object next to the CLI config.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"emitron/cli/internal/session"
	"emitron/cli/internal/xdg"
)

// KeyLastRefresh holds the time of the last successful permission refresh.
const KeyLastRefresh = "permissions.last_refreshed_at"

// Store is a file-backed key/value store. It implements session.PreferencesStore
// and session.GateStore.
type Store struct {
	mu   sync.Mutex
	path string
}

var (
	_ session.PreferencesStore = (*Store)(nil)
	_ session.GateStore        = (*Store)(nil)
)

// Open returns the store at $XDG_CONFIG_HOME/emitron/prefs.json.
func Open() (*Store, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return nil, err
	}
	return New(filepath.Join(dir, "prefs.json")), nil
}

// New returns a store at path. The file is created on first write.
func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	m := map[string]string{}
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("prefs: parse %s: %w", s.path, err)
	}
	return m, nil
}

// write replaces the file atomically.
func (s *Store) write(m map[string]string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".prefs-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Get returns the value of key.
func (s *Store) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.read()
	if err != nil {
		return "", false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.read()
	if err != nil {
		return err
	}
	m[key] = value
	return s.write(m)
}

// Keys returns all stored keys, sorted.
func (s *Store) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.read()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// ClearKeys removes keys. A key ending in "*" removes every key with that
// prefix, so "filters.*" drops all saved filters. Absent keys are ignored and
// the file is only rewritten when something changed.
func (s *Store) ClearKeys(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.read()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if prefix, ok := strings.CutSuffix(k, "*"); ok {
			for name := range m {
				if strings.HasPrefix(name, prefix) {
					delete(m, name)
					changed = true
				}
			}
			continue
		}
		if _, ok := m[k]; ok {
			delete(m, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.write(m)
}

// LoadLastRefresh returns the saved refresh time. A missing key is not an error.
func (s *Store) LoadLastRefresh() (time.Time, bool, error) {
	v, ok, err := s.Get(KeyLastRefresh)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("prefs: parse %s: %w", KeyLastRefresh, err)
	}
	return t, true, nil
}

func (s *Store) SaveLastRefresh(t time.Time) error {
	return s.Set(KeyLastRefresh, t.UTC().Format(time.RFC3339Nano))
}

func (s *Store) ClearLastRefresh() error {
	return s.ClearKeys(KeyLastRefresh)
}
