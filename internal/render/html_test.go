package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`plain`, `plain`},
		{`<script>alert("x")</script>`, `&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;`},
		{`a & b`, `a &amp; b`},
		{`it's`, `it&#39;s`},
		{`already &amp; &lt;b&gt; &#39; &#x27;`, `already &amp; &lt;b&gt; &#39; &#x27;`},
		{`broken &amp without semicolon`, `broken &amp;amp without semicolon`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Escape(tt.in), "input %q", tt.in)
	}
}

func TestEscapeIdempotent(t *testing.T) {
	inputs := []string{
		`<b>"quoted"</b> & 'single'`,
		"line one\nline two",
		`https://example.com/?a=1&b=2`,
		`&&&;;`,
	}
	for _, in := range inputs {
		once := Escape(in)
		assert.Equal(t, once, Escape(once), "input %q", in)
	}
}

func TestBoldAndLineBreaks(t *testing.T) {
	assert.Equal(t, "<strong>hi</strong> there", Bold("**hi** there"))
	assert.Equal(t, "no ** bold", Bold("no ** bold"))
	assert.Equal(t, "a<br>b<br>c", LineBreaks("a\nb\r\nc"))
}

func TestLinkify(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{
			name: "trailing period",
			in:   "see https://example.com.",
			want: `see <a href="https://example.com" target="_blank">https://example.com</a>.`,
		},
		{
			name: "two urls",
			in:   "http://a.io and https://b.io/x",
			want: `<a href="http://a.io" target="_blank">http://a.io</a> and <a href="https://b.io/x" target="_blank">https://b.io/x</a>`,
		},
		{
			name: "stops at escaped bracket",
			in:   "&lt;https://a.io&gt;",
			want: `&lt;<a href="https://a.io" target="_blank">https://a.io</a>&gt;`,
		},
		{
			name: "existing anchor untouched",
			in:   `<a href="https://x.io">https://x.io</a> then https://y.io`,
			want: `<a href="https://x.io">https://x.io</a> then <a href="https://y.io" target="_blank">https://y.io</a>`,
		},
		{
			name: "scheme only",
			in:   "https://.",
			want: "https://.",
		},
		{
			name: "no urls",
			in:   "nothing <br> here",
			want: "nothing <br> here",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Linkify(tt.in))
		})
	}
}

func TestLinkifyIdempotent(t *testing.T) {
	inputs := []string{
		"visit https://example.com/path?q=1&amp;r=2 now",
		"https://a.io&gt;https://b.io",
		"(https://paren.io) and **https://bold.io**",
		"plain text",
	}
	for _, in := range inputs {
		once := Linkify(in)
		assert.Equal(t, once, Linkify(once), "input %q", in)
	}
}

func TestFormatMessage(t *testing.T) {
	out := FormatMessage("**Note**: visit https://example.com\nthanks")
	assert.Contains(t, out, "<strong>Note</strong>")
	assert.Contains(t, out, `href="https://example.com"`)
	assert.Contains(t, out, "<br>")
	assert.Contains(t, out, "thanks")
}

func TestFormatMessageNeutralizesMarkup(t *testing.T) {
	out := FormatMessage(`<script>alert(1)</script><img src=x onerror="alert(2)">`)
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "<img")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestSanitizeDropsUnsafeLinks(t *testing.T) {
	out := Sanitize(`<a href="javascript:alert(1)">x</a><strong onclick="evil()">y</strong>`)
	assert.NotContains(t, out, "javascript:")
	assert.NotContains(t, out, "onclick")
	assert.Contains(t, out, "<strong>y</strong>")
}

func TestFormatRawInfo(t *testing.T) {
	out := FormatRawInfo("Results:\nSource: https://example.com\n\nSecond para")
	assert.Contains(t, out, "<strong>Results:</strong>")
	assert.Contains(t, out, `class="raw-info-source"`)
	assert.Contains(t, out, `href="https://example.com"`)
	assert.Contains(t, out, "<p>Second para</p>")
}

func TestFormatMessageKeepsAsterisksInsideLinks(t *testing.T) {
	out := FormatMessage("see https://x.io/**a**b ok")
	assert.Contains(t, out, `href="https://x.io/`)
	assert.Contains(t, out, "https://x.io/**a**b</a> ok")
	assert.NotContains(t, out, "<strong>")
}

func TestFormatMessageBoldAroundLink(t *testing.T) {
	out := FormatMessage("**https://bold.io** and **plain**")
	assert.Contains(t, out, `<strong><a href="https://bold.io"`)
	assert.Contains(t, out, "https://bold.io</a></strong>")
	assert.Contains(t, out, "<strong>plain</strong>")
}

func TestBoldSkipsAnchors(t *testing.T) {
	in := `<a href="https://x.io/**a**">https://x.io/**a**</a> **b**`
	assert.Equal(t, `<a href="https://x.io/**a**">https://x.io/**a**</a> <strong>b</strong>`, Bold(in))
}
