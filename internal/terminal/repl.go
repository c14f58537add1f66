// Package terminal runs the interactive chat loop.
package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"go.uber.org/zap"

	"noor-chat/internal/chat"
	"noor-chat/internal/history"
	"noor-chat/internal/render"
	"noor-chat/internal/ui"
)

const helpText = `Commands:
  /search          toggle web search for the next messages
  /theme           switch between the dark and light theme
  /clear           clear the conversation (asks first)
  /history [n]     show this session's stored messages, or the last n
  /export <file>   save the conversation as an HTML page
  /help            show this help
  /exit            quit`

// Sessions is the part of the history manager the loop uses
type Sessions interface {
	CurrentSession() (history.Session, bool)
	RecentMessages(limit int) []chat.Message
	NewSession() string
}

// REPL reads lines and drives a chat.Controller
type REPL struct {
	ctrl     *chat.Controller
	display  *ui.Display
	input    *LineReader
	sessions Sessions
	confirm  func(label string) bool
	logger   *zap.Logger
}

// Option configures a REPL
type Option func(*REPL)

// WithInput reads lines from in instead of stdin
func WithInput(in io.Reader) Option {
	return func(r *REPL) { r.input = NewLineReader(in) }
}

// WithSessions enables /history and starts a new session on /clear
func WithSessions(s Sessions) Option {
	return func(r *REPL) { r.sessions = s }
}

// WithConfirm replaces the interactive yes/no prompt
func WithConfirm(fn func(label string) bool) Option {
	return func(r *REPL) { r.confirm = fn }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(r *REPL) { r.logger = l }
}

// New creates a loop over ctrl, printing through display
func New(ctrl *chat.Controller, display *ui.Display, opts ...Option) *REPL {
	r := &REPL{
		ctrl:    ctrl,
		display: display,
		input:   NewLineReader(os.Stdin),
		confirm: PromptConfirm,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run shows the initial state and loops until /exit, end of input or ctx
// is done
func (r *REPL) Run(ctx context.Context) error {
	r.ctrl.Start()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.display.PrintPrompt()
		line, err := r.input.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		if cmd, ok := ParseCommand(line); ok {
			if cmd.Name == "exit" {
				return nil
			}
			r.runCommand(cmd)
			continue
		}

		// rejected submissions are already reported through the display
		_ = r.ctrl.Submit(ctx, line)
	}
}

func (r *REPL) runCommand(cmd Command) {
	r.logger.Debug("command", zap.String("name", cmd.Name))

	switch cmd.Name {
	case "search":
		r.ctrl.ToggleWebSearch()
	case "theme":
		theme := r.ctrl.ToggleTheme()
		r.display.PrintInfo(fmt.Sprintf("Theme: %s", theme))
	case "clear":
		cleared := r.ctrl.ClearConversation(func() bool {
			return r.confirm("Clear the whole conversation")
		})
		if cleared && r.sessions != nil {
			r.sessions.NewSession()
		}
	case "history":
		r.showHistory(cmd.Arg)
	case "export":
		r.export(cmd.Arg)
	case "help":
		r.display.PrintInfo(helpText)
	default:
		r.display.PrintWarning(fmt.Sprintf("Unknown command /%s, type /help for the list", cmd.Name))
	}
}

func (r *REPL) showHistory(arg string) {
	if r.sessions == nil {
		r.display.PrintInfo("History is disabled")
		return
	}
	s, _ := r.sessions.CurrentSession()
	if arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			r.display.PrintWarning("Usage: /history [number of messages]")
			return
		}
		s.Messages = r.sessions.RecentMessages(n)
	}
	r.display.PrintHistory(s)
}

func (r *REPL) export(path string) {
	if path == "" {
		r.display.PrintWarning("Usage: /export <file.html>")
		return
	}

	f, err := os.Create(path)
	if err != nil {
		r.display.PrintError(err)
		return
	}
	err = render.ExportHTML(f, "Conversation with Noor", r.ctrl.Transcript(), r.ctrl.Theme())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		r.logger.Warn("export failed", zap.String("path", path), zap.Error(err))
		r.display.PrintError(err)
		return
	}
	r.display.PrintSuccess("Conversation saved to " + path)
}
