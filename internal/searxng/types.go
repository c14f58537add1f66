package searxng

// SearchResponse is the JSON body of GET /search?format=json
type SearchResponse struct {
	Query           string         `json:"query"`
	NumberOfResults int            `json:"number_of_results"`
	Results         []SearchResult `json:"results"`
}

// SearchResult is one hit
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"` // snippet
	Engine  string  `json:"engine"`
	Score   float64 `json:"score"`
}
