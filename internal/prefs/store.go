// Package prefs persists UI preferences in a small JSON key/value file,
// the terminal counterpart of browser local storage.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Canonical keys and values
const (
	KeyTheme     = "theme"
	KeyWebSearch = "web_search"

	ThemeDark  = "dark"
	ThemeLight = "light"

	Enabled  = "enabled"
	Disabled = "disabled"
)

// Store is a file-backed string map
type Store struct {
	filePath string
	mu       sync.RWMutex
	values   map[string]string
}

// Open loads the store at filePath. A missing file yields an empty store;
// a corrupted one is moved aside to <file>.backup and replaced.
func Open(filePath string) (*Store, error) {
	s := &Store{
		filePath: filePath,
		values:   map[string]string{},
	}

	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read prefs file: %w", err)
	}

	if err := json.Unmarshal(data, &s.values); err != nil || s.values == nil {
		os.Rename(filePath, filePath+".backup")
		s.values = map[string]string{}
	}

	return s, nil
}

// Get returns the value for key and whether it was set
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key and writes the file
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.saveUnlocked()
}

// Theme returns the persisted theme, dark when unset or unknown
func (s *Store) Theme() string {
	if v, _ := s.Get(KeyTheme); v == ThemeLight {
		return ThemeLight
	}
	return ThemeDark
}

// SetTheme persists the theme
func (s *Store) SetTheme(theme string) error {
	if theme != ThemeDark && theme != ThemeLight {
		return fmt.Errorf("unknown theme %q", theme)
	}
	return s.Set(KeyTheme, theme)
}

// WebSearch reports whether web search was left enabled
func (s *Store) WebSearch() bool {
	v, _ := s.Get(KeyWebSearch)
	return v == Enabled
}

// SetWebSearch persists the web search mode
func (s *Store) SetWebSearch(enabled bool) error {
	if enabled {
		return s.Set(KeyWebSearch, Enabled)
	}
	return s.Set(KeyWebSearch, Disabled)
}

// saveUnlocked writes the file (must be called with lock held)
func (s *Store) saveUnlocked() error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create prefs directory: %w", err)
	}

	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal prefs: %w", err)
	}

	tempPath := s.filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempPath, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
