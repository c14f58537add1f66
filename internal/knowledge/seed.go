package knowledge

// Seed returns the starter knowledge base the dev server boots with
func Seed() *Graph {
	s := Snapshot{
		Concepts: []Concept{
			{ID: "c1", Name: "Artificial intelligence", Description: "Technology that lets machines imitate human intelligence", Category: "technology"},
			{ID: "c2", Name: "Machine learning", Description: "Branch of AI building algorithms that learn from data", Category: "technology"},
			{ID: "c3", Name: "Deep learning", Description: "Machine learning with many-layered neural networks", Category: "technology"},
			{ID: "c4", Name: "Natural language processing", Description: "How computers work with human languages", Category: "technology"},
			{ID: "c5", Name: "Neural networks", Description: "Computational models inspired by the brain", Category: "technology"},
			{ID: "c6", Name: "Big data", Description: "Data sets too large for traditional processing", Category: "technology"},
			{ID: "c7", Name: "Privacy", Description: "Protecting personal information from unauthorized access", Category: "security"},
			{ID: "c8", Name: "Ethics", Description: "Principles of right and wrong conduct", Category: "philosophy"},
			{ID: "c9", Name: "Bias", Description: "Unfair leaning for or against a person or group", Category: "society"},
			{ID: "c10", Name: "Automation", Description: "Using technology to do tasks with little human input", Category: "technology"},
		},
		Relations: []Relation{
			{Source: "c1", Target: "c2", RelationType: "includes", Strength: 0.9},
			{Source: "c2", Target: "c3", RelationType: "includes", Strength: 0.8},
			{Source: "c3", Target: "c5", RelationType: "uses", Strength: 0.9},
			{Source: "c4", Target: "c1", RelationType: "part of", Strength: 0.7},
			{Source: "c6", Target: "c2", RelationType: "supports", Strength: 0.8},
			{Source: "c1", Target: "c7", RelationType: "affects", Strength: 0.6},
			{Source: "c1", Target: "c8", RelationType: "raises issues of", Strength: 0.7},
			{Source: "c2", Target: "c9", RelationType: "may cause", Strength: 0.5},
			{Source: "c1", Target: "c10", RelationType: "enables", Strength: 0.8},
			{Source: "c10", Target: "c7", RelationType: "threatens", Strength: 0.4},
		},
	}
	g, err := FromSnapshot(s)
	if err != nil {
		panic("knowledge: invalid seed: " + err.Error())
	}
	return g
}
