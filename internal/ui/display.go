// Package ui renders controller state to a terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"noor-chat/internal/chat"
	"noor-chat/internal/history"
)

// Color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// Display is a chat.Observer that prints the conversation to a terminal
type Display struct {
	out   io.Writer
	color bool
	width int

	mu        sync.Mutex
	theme     chat.Theme
	webSearch bool
	renderer  *glamour.TermRenderer
	spinner   *spinner

	pendingSince time.Time
}

var _ chat.Observer = (*Display)(nil)

// NewDisplay creates a display on stdout. Colors and glamour styling are
// used only when stdout is a terminal.
func NewDisplay() *Display {
	fd := int(os.Stdout.Fd())
	color := term.IsTerminal(fd)
	width := 80
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		width = w
	}
	return NewDisplayWriter(os.Stdout, color, width)
}

// NewDisplayWriter creates a display on an arbitrary writer
func NewDisplayWriter(out io.Writer, color bool, width int) *Display {
	d := &Display{
		out:   out,
		color: color,
		width: width,
		theme: chat.ThemeDark,
	}
	d.spinner = newSpinner(out, color, &d.mu)
	d.renderer = d.newRenderer(d.theme)
	return d
}

// newRenderer builds a glamour renderer whose style follows the theme
func (d *Display) newRenderer(theme chat.Theme) *glamour.TermRenderer {
	style := string(theme)
	if !d.color {
		style = "notty"
	}
	wrap := d.width - 10
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return nil
	}
	return r
}

// paint wraps s in an ANSI code when colors are on
func (d *Display) paint(code, s string) string {
	if !d.color {
		return s
	}
	return code + s + colorReset
}

// printf writes under mu so output never interleaves with the spinner
func (d *Display) printf(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, format, args...)
}

// OnMessage prints one transcript entry
func (d *Display) OnMessage(msg chat.Message) {
	d.spinner.Stop()

	d.mu.Lock()
	text := d.formatMessage(msg)
	d.mu.Unlock()

	d.printf("%s", text)
}

// formatMessage lays out one entry. Caller holds mu.
func (d *Display) formatMessage(msg chat.Message) string {
	var b strings.Builder
	stamp := msg.Timestamp.Format("15:04:05")
	text := stripControl(msg.Text)

	boxed := func(header, body string) {
		fmt.Fprintf(&b, "\n%s\n", d.paint(colorGray, header+" · "+stamp))
		for _, line := range strings.Split(body, "\n") {
			fmt.Fprintf(&b, "%s %s\n", d.paint(colorGray, "│"), line)
		}
		fmt.Fprintf(&b, "%s\n", d.paint(colorGray, "└"))
	}

	switch msg.Sender {
	case chat.SenderUser:
		boxed("┌─ You", text)
	case chat.SenderBot:
		boxed("┌─ Noor", d.markdown(text))
	case chat.SenderRawInfo:
		fmt.Fprintf(&b, "\n%s\n", d.paint(colorDim+colorCyan, "🔍 Retrieved from the web"))
		for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
			fmt.Fprintf(&b, "%s\n", d.paint(colorDim, "  "+line))
		}
	case chat.SenderSystem:
		fmt.Fprintf(&b, "%s\n", d.paint(colorCyan, "ℹ "+text))
	case chat.SenderError:
		fmt.Fprintf(&b, "%s\n", d.paint(colorRed, "✗ "+text))
	default:
		fmt.Fprintf(&b, "%s\n", text)
	}
	return b.String()
}

// markdown renders bot text, falling back to the raw text
func (d *Display) markdown(text string) string {
	if d.renderer == nil {
		return text
	}
	rendered, err := d.renderer.Render(text)
	if err != nil {
		return text
	}
	if !d.color {
		rendered = stripControl(rendered)
	}
	return strings.Trim(rendered, "\n")
}

// OnPending starts or stops the loading spinner
func (d *Display) OnPending(pending bool) {
	if pending {
		d.mu.Lock()
		d.pendingSince = time.Now()
		d.mu.Unlock()
		d.spinner.Start("Thinking")
		return
	}
	d.spinner.Stop()

	d.mu.Lock()
	since := d.pendingSince
	d.pendingSince = time.Time{}
	d.mu.Unlock()
	if !since.IsZero() {
		d.printf("%s\n", d.paint(colorDim, "⏱ "+formatDuration(time.Since(since))))
	}
}

// OnThemeChanged switches the markdown style
func (d *Display) OnThemeChanged(theme chat.Theme) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if theme == d.theme && d.renderer != nil {
		return
	}
	d.theme = theme
	d.renderer = d.newRenderer(theme)
}

// OnWebSearchChanged updates the prompt label
func (d *Display) OnWebSearchChanged(enabled bool) {
	d.mu.Lock()
	d.webSearch = enabled
	d.mu.Unlock()
}

// OnCleared redraws the screen with what is left of the transcript
func (d *Display) OnCleared(remaining []chat.Message) {
	d.ClearScreen()
	d.PrintSuccess("Conversation cleared")
	for _, msg := range remaining {
		d.OnMessage(msg)
	}
}

// OnWarning prints a warning
func (d *Display) OnWarning(text string) {
	d.PrintWarning(text)
}

// OnInputCleared is a no-op: the line reader already consumed the input
func (d *Display) OnInputCleared() {}

// OnFocusInput is a no-op: the REPL prints the next prompt
func (d *Display) OnFocusInput() {}

// Theme returns the theme currently applied
func (d *Display) Theme() chat.Theme {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.theme
}

// ClearScreen clears the terminal
func (d *Display) ClearScreen() {
	if d.color {
		d.printf("\033[2J\033[H")
	}
}

// PrintWelcome displays the banner
func (d *Display) PrintWelcome(backendURL string) {
	d.printf("%s\n", d.paint(colorBold+colorCyan, "╔══════════════════════════════════════╗"))
	d.printf("%s\n", d.paint(colorBold+colorCyan, "║      Noor - knowledge assistant      ║"))
	d.printf("%s\n", d.paint(colorBold+colorCyan, "╚══════════════════════════════════════╝"))
	d.printf("\n%s %s\n", d.paint(colorGray, "Backend:"), backendURL)
	d.printf("%s\n", d.paint(colorGray, "Commands: /search | /theme | /clear | /history | /export <file> | /help | /exit"))
}

// PrintPrompt displays the input prompt with the web search label
func (d *Display) PrintPrompt() {
	d.mu.Lock()
	label := chat.WebSearchLabel(d.webSearch)
	d.mu.Unlock()
	d.printf("\n%s %s ", d.paint(colorGray, "["+label+"]"), d.paint(colorBold+colorGreen, "❯"))
}

// PrintHistory prints a stored session
func (d *Display) PrintHistory(s history.Session) {
	if len(s.Messages) == 0 {
		d.PrintInfo("No conversation history yet")
		return
	}

	d.PrintSeparator()
	d.printf("Session %s · started %s · %d messages, %d with web material\n",
		shortID(s.ID), s.StartedAt.Format("2006-01-02 15:04"), len(s.Messages), s.SearchCount())
	d.PrintSeparator()

	for _, msg := range s.Messages {
		d.printf("\n[%s] %s:\n%s\n", msg.Timestamp.Format("15:04:05"), senderName(msg.Sender), stripControl(msg.Text))
	}
	d.PrintSeparator()
}

// PrintSeparator prints a horizontal rule
func (d *Display) PrintSeparator() {
	d.printf("%s\n", d.paint(colorDim, strings.Repeat("─", min(d.width, 80))))
}

// PrintInfo displays an info message
func (d *Display) PrintInfo(msg string) {
	d.printf("%s\n", d.paint(colorCyan, "ℹ "+msg))
}

// PrintWarning displays a warning message
func (d *Display) PrintWarning(msg string) {
	d.printf("%s\n", d.paint(colorYellow, "⚠ "+msg))
}

// PrintError displays an error
func (d *Display) PrintError(err error) {
	d.printf("%s\n", d.paint(colorRed, fmt.Sprintf("✗ Error: %v", err)))
}

// PrintSuccess displays a success message
func (d *Display) PrintSuccess(msg string) {
	d.printf("%s\n", d.paint(colorGreen, "✓ "+msg))
}

// PrintGoodbye displays the goodbye message
func (d *Display) PrintGoodbye() {
	d.printf("\n%s\n", d.paint(colorBold+colorCyan, "Goodbye!"))
}

// Cleanup leaves the terminal in a good state before exit
func (d *Display) Cleanup() {
	d.spinner.Stop()
}

func senderName(s chat.Sender) string {
	switch s {
	case chat.SenderUser:
		return "You"
	case chat.SenderBot:
		return "Noor"
	case chat.SenderRawInfo:
		return "Web"
	case chat.SenderError:
		return "Error"
	default:
		return "System"
	}
}

// stripControl drops C0 and C1 control characters other than newline and
// tab, so escape sequences in message text never reach the terminal
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r < 0x20, r == 0x7f, r >= 0x80 && r <= 0x9f:
			return -1
		}
		return r
	}, s)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
