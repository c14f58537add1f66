// Package crawler fetches web pages in parallel and extracts readable text.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CrawlResult is the outcome for one URL
type CrawlResult struct {
	URL      string
	Title    string
	Content  string
	Error    error
	Duration time.Duration
}

// Crawler fetches pages through a bounded worker pool
type Crawler struct {
	httpClient *http.Client
	maxSize    int64
	maxWords   int
	userAgent  string
	maxWorkers int
	logger     *zap.Logger
}

// Options configures a Crawler
type Options struct {
	Timeout    time.Duration
	MaxWorkers int
	MaxSize    int64
	MaxWords   int
	UserAgent  string
	Logger     *zap.Logger
}

// New creates a crawler
func New(opts Options) *Crawler {
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 1
	}
	if opts.MaxWords < 1 {
		opts.MaxWords = 500
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Crawler{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
		maxSize:    opts.MaxSize,
		maxWords:   opts.MaxWords,
		userAgent:  opts.UserAgent,
		maxWorkers: opts.MaxWorkers,
		logger:     opts.Logger,
	}
}

// CrawlURLs fetches every URL and returns results in input order
func (c *Crawler) CrawlURLs(ctx context.Context, urls []string) []CrawlResult {
	results := make([]CrawlResult, len(urls))
	if len(urls) == 0 {
		return results
	}

	jobs := make(chan int, len(urls))
	for i := range urls {
		jobs <- i
	}
	close(jobs)

	workers := min(c.maxWorkers, len(urls))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = c.crawlSingle(ctx, urls[i])
			}
		}()
	}
	wg.Wait()

	return results
}

// Successful returns the results that produced text
func Successful(results []CrawlResult) []CrawlResult {
	var ok []CrawlResult
	for _, r := range results {
		if r.Error == nil && r.Content != "" {
			ok = append(ok, r)
		}
	}
	return ok
}

func (c *Crawler) crawlSingle(ctx context.Context, urlStr string) CrawlResult {
	start := time.Now()
	result := CrawlResult{URL: urlStr}

	title, text, err := c.fetch(ctx, urlStr)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
		c.logger.Debug("crawl failed", zap.String("url", urlStr), zap.Error(err))
		return result
	}

	result.Title = title
	result.Content = text
	c.logger.Debug("crawled",
		zap.String("url", urlStr),
		zap.Int("chars", len(text)),
		zap.Duration("elapsed", result.Duration))
	return result
}

func (c *Crawler) fetch(ctx context.Context, urlStr string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if contentType != "" && !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml") {
		return "", "", fmt.Errorf("non-HTML content type: %s", contentType)
	}

	body, err := ReadLimitedBody(resp.Body, c.maxSize)
	if err != nil {
		return "", "", fmt.Errorf("failed to read body: %w", err)
	}

	title, text, err := ExtractText(body, c.maxWords)
	if err != nil {
		return "", "", fmt.Errorf("failed to extract text: %w", err)
	}
	return title, text, nil
}
