package knowledge

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// relatedDecay weakens a relation's strength per hop away from the start
const relatedDecay = 0.8

// Graph is an in-memory knowledge base. It is not safe for concurrent use.
type Graph struct {
	concepts map[string]Concept
	order    []string
	edges    map[string][]Relation // outgoing, in insertion order
	nextID   int
}

// NewGraph returns an empty graph
func NewGraph() *Graph {
	return &Graph{
		concepts: make(map[string]Concept),
		edges:    make(map[string][]Relation),
		nextID:   1,
	}
}

// FromSnapshot builds a graph, validating every record. Concept ids are kept.
func FromSnapshot(s Snapshot) (*Graph, error) {
	g := NewGraph()
	for _, c := range s.Concepts {
		if c.ID == "" {
			return nil, fmt.Errorf("%w: concept %q has no id", ErrInvalid, c.Name)
		}
		if _, err := g.AddConcept(c); err != nil {
			return nil, fmt.Errorf("concept %s: %w", c.ID, err)
		}
	}
	for _, r := range s.Relations {
		if _, err := g.AddRelation(r); err != nil {
			return nil, fmt.Errorf("relation %s->%s: %w", r.Source, r.Target, err)
		}
	}
	return g, nil
}

// Clone returns an independent copy of the graph
func (g *Graph) Clone() *Graph {
	c := &Graph{
		concepts: make(map[string]Concept, len(g.concepts)),
		order:    append([]string(nil), g.order...),
		edges:    make(map[string][]Relation, len(g.edges)),
		nextID:   g.nextID,
	}
	for id, concept := range g.concepts {
		concept.RelatedConcepts = append([]string(nil), concept.RelatedConcepts...)
		if concept.Attributes != nil {
			attrs := make(map[string]any, len(concept.Attributes))
			for k, v := range concept.Attributes {
				attrs[k] = v
			}
			concept.Attributes = attrs
		}
		c.concepts[id] = concept
	}
	for src, out := range g.edges {
		c.edges[src] = append([]Relation(nil), out...)
	}
	return c
}

// Snapshot exports the graph
func (g *Graph) Snapshot() Snapshot {
	return Snapshot{
		Concepts:   g.Concepts(),
		Relations:  g.Relations(),
		Categories: g.Categories(),
	}
}

// AddConcept stores c. An empty id gets the next free "c<n>" id, an empty
// category gets DefaultCategory. Names are unique, ignoring case.
func (g *Graph) AddConcept(c Concept) (Concept, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := ValidateConcept(c); err != nil {
		return Concept{}, err
	}
	if c.Category == "" {
		c.Category = DefaultCategory
	}
	if _, ok := g.conceptByName(c.Name); ok {
		return Concept{}, fmt.Errorf("concept %q %w", c.Name, ErrExists)
	}

	if c.ID == "" {
		c.ID = g.newID()
	} else if _, ok := g.concepts[c.ID]; ok {
		return Concept{}, fmt.Errorf("concept %s %w", c.ID, ErrExists)
	}
	g.bumpNextID(c.ID)

	g.concepts[c.ID] = c
	g.order = append(g.order, c.ID)
	return c, nil
}

// UpdateConcept replaces the fields of an existing concept
func (g *Graph) UpdateConcept(id string, c Concept) (Concept, error) {
	if _, ok := g.concepts[id]; !ok {
		return Concept{}, fmt.Errorf("concept %s %w", id, ErrNotFound)
	}
	c.ID = id
	c.Name = strings.TrimSpace(c.Name)
	if err := ValidateConcept(c); err != nil {
		return Concept{}, err
	}
	if c.Category == "" {
		c.Category = DefaultCategory
	}
	if other, ok := g.conceptByName(c.Name); ok && other.ID != id {
		return Concept{}, fmt.Errorf("concept %q %w", c.Name, ErrExists)
	}
	g.concepts[id] = c
	return c, nil
}

// RemoveConcept deletes a concept and every relation touching it
func (g *Graph) RemoveConcept(id string) error {
	if _, ok := g.concepts[id]; !ok {
		return fmt.Errorf("concept %s %w", id, ErrNotFound)
	}
	delete(g.concepts, id)
	delete(g.edges, id)
	for i, cid := range g.order {
		if cid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	for src, out := range g.edges {
		g.edges[src] = dropTarget(out, id)
	}
	return nil
}

// Concept looks up one concept
func (g *Graph) Concept(id string) (Concept, bool) {
	c, ok := g.concepts[id]
	return c, ok
}

// Concepts returns all concepts in insertion order
func (g *Graph) Concepts() []Concept {
	out := make([]Concept, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.concepts[id])
	}
	return out
}

// AddRelation stores r; both ends must exist. A relation between the same
// pair replaces the previous one.
func (g *Graph) AddRelation(r Relation) (Relation, error) {
	if err := ValidateRelation(r); err != nil {
		return Relation{}, err
	}
	for _, id := range []string{r.Source, r.Target} {
		if _, ok := g.concepts[id]; !ok {
			return Relation{}, fmt.Errorf("concept %s %w", id, ErrNotFound)
		}
	}

	g.putEdge(r)
	if r.Bidirectional {
		rev := r
		rev.Source, rev.Target = r.Target, r.Source
		g.putEdge(rev)
	}
	return r, nil
}

func (g *Graph) putEdge(r Relation) {
	out := g.edges[r.Source]
	for i := range out {
		if out[i].Target == r.Target {
			out[i] = r
			return
		}
	}
	g.edges[r.Source] = append(out, r)
}

// RemoveRelation deletes the edge source -> target. Removing one side of a
// bidirectional relation removes the reverse edge too.
func (g *Graph) RemoveRelation(source, target string) error {
	out := g.edges[source]
	var removed *Relation
	for i := range out {
		if out[i].Target == target {
			removed = &out[i]
			break
		}
	}
	if removed == nil {
		return fmt.Errorf("relation %s->%s %w", source, target, ErrNotFound)
	}

	if removed.Bidirectional {
		kept := g.edges[target][:0:0]
		for _, r := range g.edges[target] {
			if r.Target == source && r.Bidirectional {
				continue
			}
			kept = append(kept, r)
		}
		g.edges[target] = kept
	}
	g.edges[source] = dropTarget(out, target)
	return nil
}

// Relations returns every edge, grouped by source in concept order
func (g *Graph) Relations() []Relation {
	var out []Relation
	for _, id := range g.order {
		out = append(out, g.edges[id]...)
	}
	if out == nil {
		out = []Relation{}
	}
	return out
}

// Categories returns the distinct concept categories, sorted
func (g *Graph) Categories() []string {
	seen := make(map[string]bool)
	cats := []string{}
	for _, c := range g.concepts {
		if !seen[c.Category] {
			seen[c.Category] = true
			cats = append(cats, c.Category)
		}
	}
	sort.Strings(cats)
	return cats
}

// Related walks outgoing relations breadth first from id, up to maxDepth
// hops past the direct neighbours. Each concept is scored once, at the
// shallowest depth it is reached, as strength * 0.8^depth of the edge
// that reached it. Results are strongest first.
func (g *Graph) Related(id string, maxDepth int) []Score {
	if _, ok := g.concepts[id]; !ok || maxDepth < 0 {
		return nil
	}

	type item struct {
		id    string
		depth int
	}
	visited := map[string]bool{id: true}
	queue := []item{{id, 0}}
	var scores []Score

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, r := range g.edges[cur.id] {
			if visited[r.Target] {
				continue
			}
			visited[r.Target] = true
			scores = append(scores, Score{
				ID:       r.Target,
				Name:     g.concepts[r.Target].Name,
				Strength: r.Strength * math.Pow(relatedDecay, float64(cur.depth)),
				Depth:    cur.depth,
			})
			if cur.depth < maxDepth {
				queue = append(queue, item{r.Target, cur.depth + 1})
			}
		}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Strength > scores[j].Strength
	})
	return scores
}

// Paths returns every simple path from source to target of at most
// maxDepth edges
func (g *Graph) Paths(source, target string, maxDepth int) [][]Step {
	if _, ok := g.concepts[source]; !ok {
		return nil
	}
	if _, ok := g.concepts[target]; !ok {
		return nil
	}

	var paths [][]Step
	onPath := map[string]bool{source: true}
	var walk func(cur string, path []Step)
	walk = func(cur string, path []Step) {
		if len(path) == maxDepth {
			return
		}
		for _, r := range g.edges[cur] {
			if onPath[r.Target] {
				continue
			}
			next := append(path[:len(path):len(path)], Step{From: cur, RelationType: r.RelationType, To: r.Target})
			if r.Target == target {
				paths = append(paths, next)
				continue
			}
			onPath[r.Target] = true
			walk(r.Target, next)
			onPath[r.Target] = false
		}
	}
	walk(source, nil)
	return paths
}

// Filter keeps the concepts whose name or description contains query
// (ignoring case) and, when category is set, that belong to it
func Filter(concepts []Concept, query, category string) []Concept {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []Concept{}
	for _, c := range concepts {
		if category != "" && c.Category != category {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(c.Name), q) &&
			!strings.Contains(strings.ToLower(c.Description), q) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (g *Graph) conceptByName(name string) (Concept, bool) {
	for _, c := range g.concepts {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Concept{}, false
}

func (g *Graph) newID() string {
	for {
		id := "c" + strconv.Itoa(g.nextID)
		g.nextID++
		if _, taken := g.concepts[id]; !taken {
			return id
		}
	}
}

// bumpNextID keeps generated ids clear of imported "c<n>" ids
func (g *Graph) bumpNextID(id string) {
	if n, err := strconv.Atoi(strings.TrimPrefix(id, "c")); err == nil && strings.HasPrefix(id, "c") && n >= g.nextID {
		g.nextID = n + 1
	}
}

func dropTarget(out []Relation, target string) []Relation {
	kept := out[:0:0]
	for _, r := range out {
		if r.Target != target {
			kept = append(kept, r)
		}
	}
	return kept
}
