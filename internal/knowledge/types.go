// Package knowledge models the concept graph behind Noor's knowledge base
// and talks to its REST API.
package knowledge

import "errors"

// DefaultCategory is assigned to concepts created without one
const DefaultCategory = "general"

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
	ErrInvalid  = errors.New("invalid")
)

// Concept is a node of the knowledge graph
type Concept struct {
	ID              string         `json:"id"`
	Name            string         `json:"name" validate:"required,max=200"`
	Description     string         `json:"description" validate:"max=5000"`
	Category        string         `json:"category" validate:"max=100"`
	RelatedConcepts []string       `json:"related_concepts,omitempty"`
	Attributes      map[string]any `json:"attributes,omitempty"`
}

// Relation is a directed, weighted edge between two concepts. A
// bidirectional relation also holds from Target to Source.
type Relation struct {
	Source        string  `json:"source" validate:"required"`
	Target        string  `json:"target" validate:"required,nefield=Source"`
	RelationType  string  `json:"relation_type" validate:"required,max=100"`
	Strength      float64 `json:"strength" validate:"min=0,max=1"`
	Description   string  `json:"description,omitempty" validate:"max=1000"`
	Bidirectional bool    `json:"bidirectional,omitempty"`
}

// Snapshot is the whole knowledge base as exchanged by export and import
type Snapshot struct {
	Concepts   []Concept  `json:"concepts"`
	Relations  []Relation `json:"relations"`
	Categories []string   `json:"categories,omitempty"`
}

// Score is a concept reached from another one and how strongly
type Score struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Strength float64 `json:"strength"`
	Depth    int     `json:"depth"`
}

// Step is one edge on a path between concepts
type Step struct {
	From         string `json:"from"`
	RelationType string `json:"relation_type"`
	To           string `json:"to"`
}
