package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><head><title> Weather today </title><script>var x = 1;</script></head>
<body><nav>Home | About</nav><main><h1>Forecast</h1><p>Sunny   with
a light breeze.</p></main><footer>copyright</footer></body></html>`

func TestExtractText(t *testing.T) {
	title, text, err := ExtractText([]byte(page), 100)
	require.NoError(t, err)
	assert.Equal(t, "Weather today", title)
	assert.Equal(t, "Forecast Sunny with a light breeze.", text)
}

func TestExtractTextWithoutMain(t *testing.T) {
	_, text, err := ExtractText([]byte(`<body><header>top</header><p>one two three four</p></body>`), 2)
	require.NoError(t, err)
	assert.Equal(t, "one two...", text)
}

func TestCrawlURLsKeepsInputOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "noor-test", r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/slow":
			time.Sleep(50 * time.Millisecond)
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, "<title>slow</title><p>slow page</p>")
		case "/fast":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<title>fast</title><p>fast page</p>")
		case "/json":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(Options{Timeout: time.Second, MaxWorkers: 4, MaxSize: 1 << 20, UserAgent: "noor-test"})
	urls := []string{srv.URL + "/slow", srv.URL + "/fast", srv.URL + "/json", srv.URL + "/missing"}
	results := c.CrawlURLs(context.Background(), urls)

	require.Len(t, results, 4)
	for i, r := range results {
		assert.Equal(t, urls[i], r.URL)
	}
	assert.Equal(t, "slow", results[0].Title)
	assert.Equal(t, "fast page", results[1].Content)
	require.Error(t, results[2].Error)
	assert.Contains(t, results[2].Error.Error(), "non-HTML")
	require.Error(t, results[3].Error)
	assert.Contains(t, results[3].Error.Error(), "404")

	ok := Successful(results)
	assert.Len(t, ok, 2)
}

func TestCrawlURLsEmpty(t *testing.T) {
	c := New(Options{})
	assert.Empty(t, c.CrawlURLs(context.Background(), nil))
}

func TestReadLimitedBody(t *testing.T) {
	b, err := ReadLimitedBody(strings.NewReader("abcdef"), 3)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(b))
}
