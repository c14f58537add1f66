package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"noor-chat/internal/chat"
)

// Manager persists transcript entries into sessions. It implements
// chat.Recorder.
type Manager struct {
	filePath    string
	mu          sync.RWMutex
	history     *History
	current     int // index of the current session, -1 before Load
	maxSessions int
}

var _ chat.Recorder = (*Manager)(nil)

// NewManager creates a history manager. maxSessions below 1 keeps one session.
func NewManager(filePath string, maxSessions int) *Manager {
	if maxSessions < 1 {
		maxSessions = 1
	}
	return &Manager{
		filePath:    filePath,
		history:     &History{Sessions: []Session{}},
		current:     -1,
		maxSessions: maxSessions,
	}
}

// Load reads history from disk and opens a fresh session
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := os.ReadFile(m.filePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		m.history = &History{Sessions: []Session{}}
	case err != nil:
		return fmt.Errorf("failed to read history file: %w", err)
	default:
		var h History
		if err := json.Unmarshal(data, &h); err != nil {
			// keep the unreadable file around and start fresh
			_ = os.Rename(m.filePath, m.filePath+".backup")
			h = History{Sessions: []Session{}}
		}
		m.history = &h
	}

	kept := m.history.Sessions[:0]
	for _, s := range m.history.Sessions {
		if len(s.Messages) > 0 {
			kept = append(kept, s)
		}
	}
	m.history.Sessions = kept

	m.current = -1
	m.startSessionLocked()
	return nil
}

// NewSession closes the current session and starts another one. A current
// session without messages is reused instead.
func (m *Manager) NewSession() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startSessionLocked()
	return m.history.Sessions[m.current].ID
}

func (m *Manager) startSessionLocked() {
	now := time.Now()
	if m.current >= 0 && len(m.history.Sessions[m.current].Messages) == 0 {
		s := &m.history.Sessions[m.current]
		s.StartedAt, s.UpdatedAt = now, now
		return
	}
	m.history.Sessions = append(m.history.Sessions, Session{
		ID:        uuid.NewString(),
		StartedAt: now,
		UpdatedAt: now,
		Messages:  []chat.Message{},
	})
	m.current = len(m.history.Sessions) - 1
}

// Record appends msg to the current session and saves
func (m *Manager) Record(msg chat.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current < 0 {
		m.startSessionLocked()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	s := &m.history.Sessions[m.current]
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now()

	return m.saveLocked()
}

// RecentMessages returns up to limit messages from the end of the current session
func (m *Manager) RecentMessages(limit int) []chat.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current < 0 || limit <= 0 {
		return nil
	}
	msgs := m.history.Sessions[m.current].Messages
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]chat.Message(nil), msgs...)
}

// CurrentSession returns a copy of the current session
func (m *Manager) CurrentSession() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current < 0 {
		return Session{}, false
	}
	s := m.history.Sessions[m.current]
	s.Messages = append([]chat.Message(nil), s.Messages...)
	return s, true
}

// Sessions returns every kept session, oldest first
func (m *Manager) Sessions() []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Session(nil), m.history.Sessions...)
}

// Save persists the history to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked()
}

// saveLocked drops empty sessions other than the current one, prunes the
// oldest sessions and writes atomically. Caller holds mu.
func (m *Manager) saveLocked() error {
	kept := m.history.Sessions[:0]
	current := -1
	for i, s := range m.history.Sessions {
		if len(s.Messages) == 0 && i != m.current {
			continue
		}
		if i == m.current {
			current = len(kept)
		}
		kept = append(kept, s)
	}
	m.history.Sessions, m.current = kept, current

	if extra := len(m.history.Sessions) - m.maxSessions; extra > 0 {
		m.history.Sessions = m.history.Sessions[extra:]
		m.current -= extra
	}

	data, err := json.MarshalIndent(m.history, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	tempPath := m.filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, m.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
