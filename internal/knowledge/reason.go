package knowledge

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// related concepts at or below this score are left out of reasoning
	expandThreshold = 0.3
	expandDepth     = 2
	inferenceDepth  = 3
	minWordLength   = 3
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// stopWords are frequent words that would match nearly every description
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "are": true, "was": true,
	"what": true, "how": true, "why": true, "who": true, "when": true, "where": true,
	"does": true, "did": true, "can": true, "this": true, "that": true, "from": true,
	"between": true, "about": true, "into": true, "its": true, "there": true, "any": true,
}

// Inference is a conclusion drawn from a chain of relations
type Inference struct {
	Premises   []string `json:"premises"`
	Conclusion string   `json:"conclusion"`
	Confidence float64  `json:"confidence"`
	Path       []Step   `json:"path"`
}

// Result is what reasoning over a question found in the graph
type Result struct {
	Question   string      `json:"question"`
	Concepts   []Concept   `json:"concepts"`
	Relations  []Relation  `json:"relations"`
	Inferences []Inference `json:"inferences"`
	Confidence float64     `json:"confidence"`
}

// ExtractConcepts returns the ids of concepts whose name or description
// contains a word of text, in graph order
func (g *Graph) ExtractConcepts(text string) []string {
	var words []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if utf8.RuneCountInString(w) >= minWordLength && !stopWords[w] {
			words = append(words, w)
		}
	}

	ids := []string{}
	for _, id := range g.order {
		c := g.concepts[id]
		name, desc := strings.ToLower(c.Name), strings.ToLower(c.Description)
		for _, w := range words {
			if strings.Contains(name, w) || strings.Contains(desc, w) {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids
}

// Reason finds the concepts a question mentions, widens them with
// strongly related concepts and infers connections from the paths
// between them. Confidence is the mean confidence of the inferences.
func (g *Graph) Reason(question string) Result {
	res := Result{
		Question:   question,
		Concepts:   []Concept{},
		Relations:  []Relation{},
		Inferences: []Inference{},
	}

	matched := g.ExtractConcepts(question)
	if len(matched) == 0 {
		return res
	}

	include := make(map[string]bool)
	for _, id := range matched {
		include[id] = true
		for _, s := range g.Related(id, expandDepth) {
			if s.Strength > expandThreshold {
				include[s.ID] = true
			}
		}
	}
	var ids []string
	for _, id := range g.order {
		if include[id] {
			ids = append(ids, id)
			res.Concepts = append(res.Concepts, g.concepts[id])
		}
	}

	res.Relations = g.relationsAmong(ids)
	for i, a := range ids {
		for _, b := range ids[i+1:] {
			res.Inferences = append(res.Inferences, g.infer(a, b)...)
			res.Inferences = append(res.Inferences, g.infer(b, a)...)
		}
	}

	if len(res.Inferences) > 0 {
		var sum float64
		for _, inf := range res.Inferences {
			sum += inf.Confidence
		}
		res.Confidence = sum / float64(len(res.Inferences))
	}
	return res
}

// relationsAmong returns one direct relation per connected pair of ids,
// preferring the edge in list order
func (g *Graph) relationsAmong(ids []string) []Relation {
	out := []Relation{}
	for i, a := range ids {
		for _, b := range ids[i+1:] {
			if r, ok := g.edge(a, b); ok {
				out = append(out, r)
			} else if r, ok := g.edge(b, a); ok {
				out = append(out, r)
			}
		}
	}
	return out
}

// infer turns every path from source to target into an inference
func (g *Graph) infer(source, target string) []Inference {
	var out []Inference
	for _, path := range g.Paths(source, target, inferenceDepth) {
		inf := Inference{
			Conclusion: fmt.Sprintf("There is a relation between %s and %s",
				g.concepts[source].Name, g.concepts[target].Name),
			Path: path,
		}
		var sum float64
		for _, st := range path {
			r, _ := g.edge(st.From, st.To)
			sum += r.Strength
			inf.Premises = append(inf.Premises, fmt.Sprintf("%s %s %s",
				g.concepts[st.From].Name, st.RelationType, g.concepts[st.To].Name))
		}
		inf.Confidence = sum / float64(len(path))
		out = append(out, inf)
	}
	return out
}

func (g *Graph) edge(source, target string) (Relation, bool) {
	for _, r := range g.edges[source] {
		if r.Target == target {
			return r, true
		}
	}
	return Relation{}, false
}

// FormatResult renders a reasoning result for reading in a terminal
func FormatResult(res Result) string {
	if len(res.Concepts) == 0 {
		return "I could not identify enough concepts to reason about.\n"
	}
	names := make(map[string]string, len(res.Concepts))
	for _, c := range res.Concepts {
		names[c.ID] = c.Name
	}
	name := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return id
	}

	var b strings.Builder
	b.WriteString("Reasoning results:\n\nConcepts:\n")
	for i, c := range res.Concepts {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, c.Name, truncate(c.Description, 100))
	}

	b.WriteString("\n")
	if len(res.Relations) > 0 {
		b.WriteString("Relations:\n")
		for i, r := range res.Relations {
			fmt.Fprintf(&b, "%d. %s %s %s (confidence %s)\n",
				i+1, name(r.Source), r.RelationType, name(r.Target), percent(r.Strength))
		}
	} else {
		b.WriteString("No direct relations between the concepts.\n")
	}

	b.WriteString("\n")
	if len(res.Inferences) > 0 {
		b.WriteString("Inferences:\n")
		for i, inf := range res.Inferences {
			fmt.Fprintf(&b, "%d. %s (confidence %s)\n   based on:\n", i+1, inf.Conclusion, percent(inf.Confidence))
			for _, p := range inf.Premises {
				fmt.Fprintf(&b, "   - %s\n", p)
			}
		}
	} else {
		b.WriteString("No inferences could be drawn.\n")
	}

	fmt.Fprintf(&b, "\nOverall confidence: %s\n", percent(res.Confidence))
	return b.String()
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
