package searxng

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchSortsAndLimits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "noor-test", r.Header.Get("User-Agent"))

		_ = json.NewEncoder(w).Encode(SearchResponse{Results: []SearchResult{
			{URL: "https://low.io", Score: 0.1},
			{URL: "https://high.io", Score: 3},
			{URL: "https://high.io", Score: 2.5},
			{URL: "", Score: 9},
			{URL: "https://mid.io", Score: 1},
		}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "noor-test", time.Second, nil)
	results, err := c.Search(context.Background(), "golang", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://high.io", results[0].URL)
	assert.Equal(t, "https://mid.io", results[1].URL)
}

func TestSearchForbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ua", time.Second, nil)
	_, err := c.Search(context.Background(), "q", 5)
	assert.ErrorIs(t, err, ErrJSONDisabled)
	assert.ErrorIs(t, c.HealthCheck(context.Background()), ErrJSONDisabled)
}

func TestSearchBadStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "broken" {
			_, _ = w.Write([]byte("{"))
			return
		}
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ua", time.Second, nil)

	_, err := c.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	_, err = c.Search(context.Background(), "broken", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")

	assert.NoError(t, c.HealthCheck(context.Background()))
}
