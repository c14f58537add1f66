// Package searxng queries a SearXNG metasearch instance over its JSON API.
package searxng

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrJSONDisabled means the instance refuses format=json
var ErrJSONDisabled = errors.New("searxng JSON API is not enabled, add json to search.formats in settings.yml")

// Client talks to one SearXNG instance
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a SearXNG client
func NewClient(baseURL, userAgent string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Search returns up to maxResults hits, best score first, skipping
// duplicate URLs
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")

	resp, err := c.get(ctx, "/search?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, ErrJSONDisabled
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("searxng returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var searchResp SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	sort.SliceStable(searchResp.Results, func(i, j int) bool {
		return searchResp.Results[i].Score > searchResp.Results[j].Score
	})

	seen := make(map[string]bool, len(searchResp.Results))
	results := make([]SearchResult, 0, maxResults)
	for _, r := range searchResp.Results {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		results = append(results, r)
		if len(results) == maxResults {
			break
		}
	}

	c.logger.Debug("searxng search",
		zap.String("query", query),
		zap.Int("hits", len(searchResp.Results)),
		zap.Int("kept", len(results)))
	return results, nil
}

// HealthCheck verifies the instance answers JSON queries
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := c.get(ctx, "/search?q=test&format=json")
	if err != nil {
		return fmt.Errorf("searxng is unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return ErrJSONDisabled
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("searxng returned server error: %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	return c.httpClient.Do(req)
}
