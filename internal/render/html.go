// Package render turns message text into safe HTML fragments.
//
// Raw text is always escaped before any markup is added, so nothing the
// server sends can become active script. Link detection works on the
// escaped fragment and never touches text already inside an <a> element,
// which makes Linkify idempotent.
package render

import (
	"bytes"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var (
	entityRef = regexp.MustCompile(`^&(#[0-9]{1,7}|#[xX][0-9a-fA-F]{1,6}|[a-zA-Z][a-zA-Z0-9]{1,31});`)
	urlToken  = regexp.MustCompile(`https?://[^\s<>"')]+`)
	boldSpan  = regexp.MustCompile(`\*\*(.+?)\*\*`)
	anchorTag = regexp.MustCompile(`(?s)<a\b[^>]*>.*?</a>`)

	// escaped characters a URL cannot run through
	urlStoppers = []string{"&lt;", "&gt;", "&#34;", "&#39;", "&quot;", "&apos;"}

	sourcePrefixes = []string{"Source:", "المصدر:"}
)

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.RequireParseableURLs(true)
	p.AllowURLSchemes("http", "https")
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^raw-info-[a-z]+$`)).OnElements("div")
	p.AllowElements("a", "br", "strong", "p", "div")
	return p
}

// FormatMessage applies the message presentation policy: escape, auto-link
// http(s) URLs, **bold** outside links, then newline to <br>.
func FormatMessage(text string) string {
	out := Escape(text)
	out = Linkify(out)
	out = Bold(out)
	out = LineBreaks(out)
	return Sanitize(out)
}

// FormatRawInfo renders retrieved web material: blank-line separated
// paragraphs, "Source:" lines set apart, and "Heading:" lines emphasized.
func FormatRawInfo(text string) string {
	var b strings.Builder
	for _, para := range strings.Split(Escape(text), "\n\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		lines := strings.Split(strings.Trim(para, "\n"), "\n")
		for i, line := range lines {
			lines[i] = formatRawLine(line)
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br>"))
		b.WriteString("</p>")
	}
	return Sanitize(Linkify(b.String()))
}

func formatRawLine(line string) string {
	trimmed := strings.TrimSpace(line)
	for _, prefix := range sourcePrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return `<div class="raw-info-source">` + trimmed + `</div>`
		}
	}
	if len(trimmed) > 1 && strings.HasSuffix(trimmed, ":") {
		return "<strong>" + trimmed + "</strong>"
	}
	return line
}

// Escape HTML-escapes text. Existing character references are kept as they
// are, so escaping already-escaped text is a no-op.
func Escape(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		switch c := text[i]; c {
		case '&':
			if m := entityRef.FindString(text[i:]); m != "" {
				b.WriteString(m)
				i += len(m) - 1
				continue
			}
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&#34;")
		case '\'':
			b.WriteString("&#39;")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Bold converts **text** into <strong>text</strong>. Anchors are set aside
// first so asterisks inside a link never split it.
func Bold(fragment string) string {
	var anchors []string
	masked := anchorTag.ReplaceAllStringFunc(fragment, func(a string) string {
		anchors = append(anchors, a)
		return anchorMark(len(anchors) - 1)
	})
	masked = boldSpan.ReplaceAllString(masked, "<strong>$1</strong>")
	for i, a := range anchors {
		masked = strings.Replace(masked, anchorMark(i), a, 1)
	}
	return masked
}

func anchorMark(i int) string {
	return "\uE000" + strconv.Itoa(i) + "\uE001"
}

// LineBreaks converts newlines into <br>
func LineBreaks(fragment string) string {
	fragment = strings.ReplaceAll(fragment, "\r\n", "\n")
	return strings.ReplaceAll(fragment, "\n", "<br>")
}

// Linkify wraps bare http(s) URLs of an escaped HTML fragment in anchors.
// Text inside an existing <a> element is left alone.
func Linkify(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b bytes.Buffer
	depth := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				// unparseable tail; keep it verbatim
				b.Write(z.Raw())
			}
			break
		}

		raw := z.Raw()
		switch tt {
		case html.StartTagToken:
			if isAnchor(z) {
				depth++
			}
			b.Write(raw)
		case html.EndTagToken:
			if isAnchor(z) && depth > 0 {
				depth--
			}
			b.Write(raw)
		case html.TextToken:
			if depth > 0 {
				b.Write(raw)
			} else {
				b.WriteString(linkifyText(string(raw)))
			}
		default:
			b.Write(raw)
		}
	}

	return b.String()
}

func isAnchor(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	return string(name) == "a"
}

// linkifyText links every URL in one escaped text run
func linkifyText(text string) string {
	var b strings.Builder
	for {
		loc := urlToken.FindStringIndex(text)
		if loc == nil {
			b.WriteString(text)
			return b.String()
		}

		url := trimURL(text[loc[0]:loc[1]])
		b.WriteString(text[:loc[0]])
		if strings.HasSuffix(url, "://") {
			b.WriteString(url)
		} else {
			b.WriteString(`<a href="`)
			b.WriteString(url)
			b.WriteString(`" target="_blank">`)
			b.WriteString(url)
			b.WriteString(`</a>`)
		}
		text = text[loc[0]+len(url):]
	}
}

// trimURL cuts a matched URL at the first escaped delimiter and drops
// trailing sentence punctuation.
func trimURL(url string) string {
	for _, stop := range urlStoppers {
		if i := strings.Index(url, stop); i >= 0 {
			url = url[:i]
		}
	}
	return strings.TrimRight(url, ".,;:!?*")
}

// Sanitize strips everything outside the small set of elements the
// renderer emits.
func Sanitize(fragment string) string {
	return policy.Sanitize(fragment)
}
