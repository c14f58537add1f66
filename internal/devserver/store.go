package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"noor-chat/internal/knowledge"
)

// KnowledgeStore guards the knowledge graph and mirrors it to a JSON file
type KnowledgeStore struct {
	mu    sync.RWMutex
	graph *knowledge.Graph
	path  string
}

// OpenKnowledgeStore loads path, or starts from the seed graph when the
// file does not exist. An empty path keeps everything in memory.
func OpenKnowledgeStore(path string) (*KnowledgeStore, error) {
	s := &KnowledgeStore{path: path}
	if path == "" {
		s.graph = knowledge.Seed()
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		s.graph = knowledge.Seed()
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base: %w", err)
	}

	var snap knowledge.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base %s: %w", path, err)
	}
	g, err := knowledge.FromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("invalid knowledge base %s: %w", path, err)
	}
	s.graph = g
	return s, nil
}

// View runs fn with read access
func (s *KnowledgeStore) View(fn func(g *knowledge.Graph)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.graph)
}

// Update runs fn against a copy of the graph. The copy replaces the live
// graph only after fn succeeds and the copy is saved.
func (s *KnowledgeStore) Update(fn func(g *knowledge.Graph) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.graph.Clone()
	if err := fn(g); err != nil {
		return err
	}
	if err := s.save(g); err != nil {
		return err
	}
	s.graph = g
	return nil
}

// Replace swaps in a whole new knowledge base once it is saved
func (s *KnowledgeStore) Replace(snap knowledge.Snapshot) (knowledge.Snapshot, error) {
	g, err := knowledge.FromSnapshot(snap)
	if err != nil {
		return knowledge.Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(g); err != nil {
		return knowledge.Snapshot{}, err
	}
	s.graph = g
	return g.Snapshot(), nil
}

func (s *KnowledgeStore) save(g *knowledge.Graph) error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(g.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal knowledge base: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create knowledge directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write knowledge base: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace knowledge base: %w", err)
	}
	return nil
}
