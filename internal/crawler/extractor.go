package crawler

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// elements whose text is page chrome, not content
var skippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"nav":      true,
	"footer":   true,
	"header":   true,
	"aside":    true,
	"form":     true,
}

// ExtractText returns the page title and up to maxWords words of visible
// text. Text inside <main> or <article> is preferred when present.
func ExtractText(htmlContent []byte, maxWords int) (title string, text string, err error) {
	doc, err := html.Parse(bytes.NewReader(htmlContent))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	if t := findElement(doc, "title"); t != nil {
		title = strings.TrimSpace(nodeText(t))
	}

	root := doc
	for _, tag := range []string{"main", "article"} {
		if n := findElement(doc, tag); n != nil {
			root = n
			break
		}
	}

	var b strings.Builder
	collectText(root, &b)
	return title, truncateWords(b.String(), maxWords), nil
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode && (skippedTags[n.Data] || n.Data == "title") {
		return
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}

// truncateWords collapses whitespace and keeps at most maxWords words
func truncateWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ") + "..."
}

// ReadLimitedBody reads up to maxBytes from a reader. A non-positive limit
// reads everything.
func ReadLimitedBody(body io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(body)
	}
	return io.ReadAll(io.LimitReader(body, maxBytes))
}
