package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a non-2xx answer from the knowledge API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("knowledge API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("knowledge API returned status %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps 404 and 409 onto ErrNotFound and ErrExists
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrExists
	case http.StatusBadRequest:
		return ErrInvalid
	}
	return nil
}

// Client talks to the knowledge base REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a knowledge API client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Concepts lists every concept
func (c *Client) Concepts(ctx context.Context) ([]Concept, error) {
	var out []Concept
	err := c.do(ctx, http.MethodGet, "/api/concepts", nil, &out)
	return out, err
}

// CreateConcept adds a concept; the server assigns its id
func (c *Client) CreateConcept(ctx context.Context, concept Concept) (Concept, error) {
	if err := ValidateConcept(concept); err != nil {
		return Concept{}, err
	}
	var out Concept
	err := c.do(ctx, http.MethodPost, "/api/concepts", concept, &out)
	return out, err
}

// UpdateConcept replaces a concept's fields
func (c *Client) UpdateConcept(ctx context.Context, id string, concept Concept) (Concept, error) {
	concept.ID = id
	if err := ValidateConcept(concept); err != nil {
		return Concept{}, err
	}
	var out Concept
	err := c.do(ctx, http.MethodPut, "/api/concepts/"+url.PathEscape(id), concept, &out)
	return out, err
}

// DeleteConcept removes a concept and its relations
func (c *Client) DeleteConcept(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/concepts/"+url.PathEscape(id), nil, nil)
}

// Relations lists every relation
func (c *Client) Relations(ctx context.Context) ([]Relation, error) {
	var out []Relation
	err := c.do(ctx, http.MethodGet, "/api/relations", nil, &out)
	return out, err
}

// CreateRelation links two concepts
func (c *Client) CreateRelation(ctx context.Context, r Relation) (Relation, error) {
	if err := ValidateRelation(r); err != nil {
		return Relation{}, err
	}
	var out Relation
	err := c.do(ctx, http.MethodPost, "/api/relations", r, &out)
	return out, err
}

// DeleteRelation removes the relation source -> target
func (c *Client) DeleteRelation(ctx context.Context, source, target string) error {
	path := "/api/relations/" + url.PathEscape(source) + "/" + url.PathEscape(target)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// Categories lists the distinct categories
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var out []string
	err := c.do(ctx, http.MethodGet, "/api/categories", nil, &out)
	return out, err
}

// Export downloads the whole knowledge base
func (c *Client) Export(ctx context.Context) (Snapshot, error) {
	var out Snapshot
	err := c.do(ctx, http.MethodGet, "/api/export", nil, &out)
	return out, err
}

// Import replaces the knowledge base and returns what the server now holds
func (c *Client) Import(ctx context.Context, s Snapshot) (Snapshot, error) {
	var out Snapshot
	err := c.do(ctx, http.MethodPost, "/api/import", s, &out)
	return out, err
}

// Reason asks the server to reason over the knowledge base about question
func (c *Client) Reason(ctx context.Context, question string) (Thought, error) {
	if strings.TrimSpace(question) == "" {
		return Thought{}, fmt.Errorf("%w: empty question", ErrInvalid)
	}
	var out Thought
	err := c.do(ctx, http.MethodPost, "/api/reason", map[string]string{"question": question}, &out)
	return out, err
}

// do sends body as JSON and decodes the reply into out when out is non-nil
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
