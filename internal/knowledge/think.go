package knowledge

import (
	"fmt"
	"strings"
)

// Question types
const (
	QueryGeneral     = "general_query"
	QueryInformation = "information_query"
	QueryHowTo       = "how_to"
	QueryExplanation = "explanation"
	QueryTime        = "time_query"
	QueryLocation    = "location_query"
	QueryYesNo       = "yes_no_query"
	QueryPerson      = "person_query"
)

// questionWords maps a leading word onto the question type, in English
// and Arabic
var questionWords = map[string]string{
	"what": QueryInformation, "ما": QueryInformation, "ماذا": QueryInformation,
	"how": QueryHowTo, "كيف": QueryHowTo,
	"why": QueryExplanation, "لماذا": QueryExplanation,
	"when": QueryTime, "متى": QueryTime,
	"where": QueryLocation, "أين": QueryLocation,
	"is": QueryYesNo, "are": QueryYesNo, "does": QueryYesNo, "do": QueryYesNo, "can": QueryYesNo, "هل": QueryYesNo,
	"who": QueryPerson, "من": QueryPerson,
}

var freshWords = map[string]bool{
	"latest": true, "new": true, "newest": true, "recent": true, "now": true, "today": true,
	"احدث": true, "أحدث": true, "جديد": true, "اخر": true, "آخر": true, "الان": true, "الآن": true,
}

// Plan steps
const (
	StepAnalyze = "Analyze the question"
	StepSearch  = "Search for recent information"
	StepReason  = "Reason over the knowledge base"
	StepAnswer  = "Compose the final answer"
)

// Analysis describes what a question asks for
type Analysis struct {
	Type           string   `json:"type"`
	Keywords       []string `json:"keywords"`
	Complexity     int      `json:"complexity"`
	NeedsFreshInfo bool     `json:"needs_fresh_info"`
}

// Evaluation grades how well the knowledge base covered a question
type Evaluation struct {
	Confidence float64  `json:"confidence"`
	Complete   bool     `json:"complete"`
	Missing    []string `json:"missing"`
}

// Thought is the full treatment of one question: analysis, plan,
// reasoning over the graph and an evaluation of the outcome
type Thought struct {
	Analysis   Analysis   `json:"analysis"`
	Plan       []string   `json:"plan"`
	Reasoning  Result     `json:"reasoning"`
	Evaluation Evaluation `json:"evaluation"`
}

// AnalyzeQuestion classifies a question by its first word and picks out
// its keywords, words longer than three letters
func AnalyzeQuestion(question string) Analysis {
	words := strings.Fields(strings.ToLower(question))
	a := Analysis{Type: QueryGeneral, Keywords: []string{}, Complexity: len(words)}
	if len(words) > 0 {
		if t, ok := questionWords[strings.Trim(words[0], "?؟,.!")]; ok {
			a.Type = t
		}
	}
	for _, w := range words {
		w = strings.Trim(w, "?؟,.!:;\"'()")
		if len([]rune(w)) > 3 {
			a.Keywords = append(a.Keywords, w)
		}
		if freshWords[w] {
			a.NeedsFreshInfo = true
		}
	}
	return a
}

// Plan lists the steps for answering a question of the given analysis
func Plan(a Analysis) []string {
	steps := []string{StepAnalyze}
	if a.NeedsFreshInfo {
		steps = append(steps, StepSearch)
	}
	steps = append(steps, StepReason)
	switch a.Type {
	case QueryHowTo:
		steps = append(steps,
			"Identify the prerequisites",
			"Break the task into steps",
			"Explain each step in detail",
			"Give practical examples")
	case QueryExplanation:
		steps = append(steps,
			"Gather the background",
			"Analyze the causal relations",
			"Give a logical explanation",
			"Support the explanation with evidence")
	}
	return append(steps, StepAnswer)
}

// Evaluate reports what the reasoning could not establish
func Evaluate(res Result) Evaluation {
	ev := Evaluation{Confidence: res.Confidence, Missing: []string{}}
	if len(res.Concepts) == 0 {
		ev.Missing = append(ev.Missing, "no known concepts in the question")
	}
	if len(res.Relations) == 0 {
		ev.Missing = append(ev.Missing, "no relations between the concepts")
	}
	if len(res.Inferences) == 0 {
		ev.Missing = append(ev.Missing, "no inferences")
	}
	ev.Complete = len(ev.Missing) == 0
	return ev
}

// Think analyzes question, plans an answer and reasons over g
func (g *Graph) Think(question string) Thought {
	a := AnalyzeQuestion(question)
	res := g.Reason(question)
	return Thought{
		Analysis:   a,
		Plan:       Plan(a),
		Reasoning:  res,
		Evaluation: Evaluate(res),
	}
}

// FormatThought renders the plan, the reasoning and the evaluation
func FormatThought(t Thought) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question type: %s\n", t.Analysis.Type)
	if len(t.Analysis.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(t.Analysis.Keywords, ", "))
	}
	b.WriteString("\nPlan:\n")
	for i, step := range t.Plan {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	b.WriteString("\n")
	b.WriteString(FormatResult(t.Reasoning))

	complete := "no"
	if t.Evaluation.Complete {
		complete = "yes"
	}
	fmt.Fprintf(&b, "\nComplete: %s\n", complete)
	for _, m := range t.Evaluation.Missing {
		fmt.Fprintf(&b, "  * %s\n", m)
	}
	return b.String()
}
