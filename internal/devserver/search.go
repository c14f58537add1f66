package devserver

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"noor-chat/internal/crawler"
	"noor-chat/internal/searxng"
)

// rawInfoWords caps the excerpt shown per source in raw_info
const rawInfoWords = 60

// Findings is what a web search gathered for one question
type Findings struct {
	// RawInfo is shown to the user ahead of the reply
	RawInfo string
	// Context is handed to the model
	Context string
	URLs    []string
}

// Searcher gathers web material for a question
type Searcher interface {
	Gather(ctx context.Context, query string) (Findings, error)
}

// WebSearcher searches SearXNG and crawls the hits
type WebSearcher struct {
	search     *searxng.Client
	crawl      *crawler.Crawler
	maxResults int
	logger     *zap.Logger
}

// NewWebSearcher creates a searcher
func NewWebSearcher(search *searxng.Client, crawl *crawler.Crawler, maxResults int, logger *zap.Logger) *WebSearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSearcher{search: search, crawl: crawl, maxResults: maxResults, logger: logger}
}

// Gather runs the search. Hits that fail to crawl fall back to the
// search snippet.
func (s *WebSearcher) Gather(ctx context.Context, query string) (Findings, error) {
	hits, err := s.search.Search(ctx, query, s.maxResults)
	if err != nil {
		return Findings{}, err
	}
	if len(hits) == 0 {
		return Findings{}, nil
	}

	urls := make([]string, len(hits))
	for i, h := range hits {
		urls[i] = h.URL
	}
	pages := s.crawl.CrawlURLs(ctx, urls)

	sources := make([]source, 0, len(hits))
	for i, h := range hits {
		src := source{Title: h.Title, URL: h.URL, Text: h.Content}
		if p := pages[i]; p.Error == nil && p.Content != "" {
			if p.Title != "" {
				src.Title = p.Title
			}
			src.Text = p.Content
		}
		if strings.TrimSpace(src.Text) == "" {
			continue
		}
		sources = append(sources, src)
	}

	s.logger.Info("web search",
		zap.String("query", query),
		zap.Int("hits", len(hits)),
		zap.Int("crawled", len(crawler.Successful(pages))),
		zap.Int("sources", len(sources)))

	return Findings{
		RawInfo: buildRawInfo(sources),
		Context: buildSearchContext(sources),
		URLs:    urls,
	}, nil
}

type source struct {
	Title, URL, Text string
}

// buildRawInfo formats one paragraph per source: a heading line, a
// "Source:" line, then a short excerpt
func buildRawInfo(sources []source) string {
	paras := make([]string, 0, len(sources))
	for _, src := range sources {
		title := strings.TrimSpace(src.Title)
		if title == "" {
			title = src.URL
		}
		paras = append(paras, fmt.Sprintf("%s:\nSource: %s\n%s",
			strings.TrimRight(title, ":"), src.URL, excerpt(src.Text, rawInfoWords)))
	}
	return strings.Join(paras, "\n\n")
}

// buildSearchContext formats crawled content for the model
func buildSearchContext(sources []source) string {
	if len(sources) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("# Web Search Results\n\n")
	sb.WriteString("The following information was retrieved from the web:\n\n")
	for i, src := range sources {
		fmt.Fprintf(&sb, "## Source %d: %s\n", i+1, src.Title)
		fmt.Fprintf(&sb, "URL: %s\n\n", src.URL)
		sb.WriteString(src.Text)
		sb.WriteString("\n\n---\n\n")
	}
	return sb.String()
}

func excerpt(text string, words int) string {
	fields := strings.Fields(text)
	if len(fields) <= words {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[:words], " ") + "..."
}
