package render

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"noor-chat/internal/chat"
)

var exportTemplate = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; background: {{.Background}}; color: {{.Foreground}}; }
.message { margin: 0.75rem 0; padding: 0.5rem 0.75rem; border-radius: 6px; }
.user-message { background: {{.UserBubble}}; }
.bot-message { background: {{.BotBubble}}; }
.system-message { font-style: italic; opacity: 0.8; }
.error-message { color: #d9534f; }
.raw-info-message { font-size: 0.9em; border-left: 3px solid #888; }
.timestamp { font-size: 0.75em; opacity: 0.6; }
a { color: {{.Link}}; }
</style>
</head>
<body class="{{.Theme}}-theme">
<h1>{{.Title}}</h1>
<p class="timestamp">Exported {{.Exported}}</p>
{{range .Messages}}<div class="message {{.Class}}">
<div class="timestamp">{{.Time}}</div>
<div>{{.Body}}</div>
</div>
{{end}}</body>
</html>
`))

type palette struct {
	Background, Foreground, UserBubble, BotBubble, Link string
}

var palettes = map[chat.Theme]palette{
	chat.ThemeDark:  {"#1e1e1e", "#e0e0e0", "#2b3a4a", "#2d2d2d", "#7fb3ff"},
	chat.ThemeLight: {"#ffffff", "#222222", "#dcecff", "#f1f1f1", "#0b5ed7"},
}

type exportMessage struct {
	Class string
	Time  string
	Body  template.HTML
}

// ExportHTML writes a standalone HTML page of the transcript in the given
// theme. Message bodies go through FormatMessage or FormatRawInfo.
func ExportHTML(w io.Writer, title string, messages []chat.Message, theme chat.Theme) error {
	p, ok := palettes[theme]
	if !ok {
		p = palettes[chat.ThemeDark]
	}

	items := make([]exportMessage, 0, len(messages))
	for _, m := range messages {
		items = append(items, exportMessage{
			Class: strings.ReplaceAll(string(m.Sender), "_", "-") + "-message",
			Time:  m.Timestamp.Format("2006-01-02 15:04:05"),
			Body:  template.HTML(formatBody(m)),
		})
	}

	data := struct {
		palette
		Title    string
		Theme    chat.Theme
		Exported string
		Messages []exportMessage
	}{
		palette:  p,
		Title:    title,
		Theme:    theme,
		Exported: time.Now().Format(time.RFC1123),
		Messages: items,
	}

	if err := exportTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render transcript: %w", err)
	}
	return nil
}

// formatBody returns sanitized HTML for one message
func formatBody(m chat.Message) string {
	if m.Sender == chat.SenderRawInfo {
		return FormatRawInfo(m.Text)
	}
	return FormatMessage(m.Text)
}
