// Package chat holds the conversation controller: the transcript, the
// single-flight latch around backend requests, and the UI toggles.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"noor-chat/internal/backend"
)

var (
	// ErrEmptyInput is returned when Submit gets empty or whitespace-only text
	ErrEmptyInput = errors.New("empty message")
	// ErrPending is returned when Submit is called while a request is in flight
	ErrPending = errors.New("a request is already pending")
)

// Backend sends one chat request
type Backend interface {
	Chat(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error)
}

// PrefStore persists UI preferences
type PrefStore interface {
	Theme() string
	SetTheme(theme string) error
	WebSearch() bool
	SetWebSearch(enabled bool) error
}

// Option configures a Controller
type Option func(*Controller)

// WithObserver sets the rendering layer that follows controller state
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// WithRecorder sets where appended messages are persisted
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithGreeting sets the text of the initial transcript entry
func WithGreeting(text string) Option {
	return func(c *Controller) { c.greeting = text }
}

// WithTimeout bounds each backend request. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// Controller owns the transcript and the UI preference state.
//
// At most one backend request is in flight: Submit while pending is
// dropped, not queued. Submit blocks until its request completes.
type Controller struct {
	client   Backend
	store    PrefStore
	observer Observer
	recorder Recorder
	logger   *zap.Logger
	greeting string
	timeout  time.Duration

	// emitMu orders "append then notify" so observers see transcript order
	emitMu sync.Mutex

	mu         sync.RWMutex
	transcript []Message
	pending    bool
	theme      Theme
	webSearch  bool
}

// NewController creates a controller, re-applying persisted preferences.
// The transcript starts with a single greeting entry.
func NewController(client Backend, store PrefStore, opts ...Option) *Controller {
	c := &Controller{
		client:   client,
		store:    store,
		observer: NopObserver{},
		logger:   zap.NewNop(),
		greeting: "Hello! How can I help you today?",
		theme:    ThemeDark,
	}
	for _, opt := range opts {
		opt(c)
	}

	if store != nil {
		if Theme(store.Theme()) == ThemeLight {
			c.theme = ThemeLight
		}
		c.webSearch = store.WebSearch()
	}

	c.transcript = []Message{newMessage(SenderBot, c.greeting)}
	return c
}

// Start pushes the initial state to the observer
func (c *Controller) Start() {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.RLock()
	theme, webSearch := c.theme, c.webSearch
	initial := append([]Message(nil), c.transcript...)
	c.mu.RUnlock()

	c.observer.OnThemeChanged(theme)
	c.observer.OnWebSearchChanged(webSearch)
	for _, msg := range initial {
		c.observer.OnMessage(msg)
	}
	c.observer.OnFocusInput()
}

// Submit sends text to the backend and renders the outcome. It returns
// ErrEmptyInput or ErrPending when the submission is rejected; once
// accepted, every outcome (reply, server error, transport failure) lands
// in the transcript and Submit returns nil.
func (c *Controller) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		c.observer.OnWarning(EmptyInputWarning)
		return ErrEmptyInput
	}

	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		c.observer.OnWarning(PendingWarning)
		return ErrPending
	}
	c.pending = true
	webSearch := c.webSearch
	c.mu.Unlock()

	// cleanup runs on every exit path
	defer c.finish()

	c.append(newMessage(SenderUser, text))
	c.observer.OnInputCleared()
	c.observer.OnPending(true)

	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.client.Chat(reqCtx, backend.ChatRequest{Message: text, WebSearch: webSearch})
	if err != nil {
		c.logger.Warn("chat request failed",
			zap.Error(err),
			zap.Bool("web_search", webSearch),
			zap.Duration("elapsed", time.Since(start)))
		c.append(newMessage(SenderError, TransportErrorText))
		return nil
	}

	c.logger.Debug("chat reply received",
		zap.Bool("web_search", webSearch),
		zap.Bool("raw_info", resp.RawInfo != ""),
		zap.Duration("elapsed", time.Since(start)))

	if resp.Error != "" {
		c.append(newMessage(SenderError, resp.Error))
		return nil
	}

	reply := newMessage(SenderBot, resp.Response)
	if strings.TrimSpace(resp.RawInfo) != "" {
		c.append(newMessage(SenderRawInfo, resp.RawInfo))
		reply.RawInfo = resp.RawInfo
	}
	c.append(reply)
	return nil
}

// finish clears the pending latch and restores the input
func (c *Controller) finish() {
	c.mu.Lock()
	c.pending = false
	c.mu.Unlock()

	c.observer.OnPending(false)
	c.observer.OnFocusInput()
}

// ToggleTheme flips the theme, applies it and persists it
func (c *Controller) ToggleTheme() Theme {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	c.theme = c.theme.Toggle()
	theme := c.theme
	c.mu.Unlock()

	c.observer.OnThemeChanged(theme)
	if c.store != nil {
		if err := c.store.SetTheme(string(theme)); err != nil {
			c.logger.Warn("failed to persist theme", zap.Error(err))
		}
	}
	return theme
}

// ToggleWebSearch flips web search mode and announces it in the transcript.
// The new mode applies from the next Submit.
func (c *Controller) ToggleWebSearch() bool {
	c.mu.Lock()
	c.webSearch = !c.webSearch
	enabled := c.webSearch
	c.mu.Unlock()

	c.observer.OnWebSearchChanged(enabled)

	text := WebSearchOffText
	if enabled {
		text = WebSearchOnText
	}
	c.append(newMessage(SenderSystem, text))

	if c.store != nil {
		if err := c.store.SetWebSearch(enabled); err != nil {
			c.logger.Warn("failed to persist web search mode", zap.Error(err))
		}
	}
	return enabled
}

// ClearConversation truncates the transcript to its initial entry once
// confirm approves. A nil confirm counts as declined.
func (c *Controller) ClearConversation(confirm func() bool) bool {
	if confirm == nil || !confirm() {
		return false
	}

	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	c.transcript = c.transcript[:1:1]
	remaining := append([]Message(nil), c.transcript...)
	c.mu.Unlock()

	c.observer.OnCleared(remaining)
	return true
}

// Transcript returns a copy of the current transcript
func (c *Controller) Transcript() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Message(nil), c.transcript...)
}

// Pending reports whether a request is in flight
func (c *Controller) Pending() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pending
}

// Theme returns the active theme
func (c *Controller) Theme() Theme {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.theme
}

// WebSearchEnabled reports whether the next request asks for web search
func (c *Controller) WebSearchEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.webSearch
}

// append adds msg to the transcript, notifies the observer and records it
func (c *Controller) append(msg Message) {
	func() {
		c.emitMu.Lock()
		defer c.emitMu.Unlock()

		c.mu.Lock()
		c.transcript = append(c.transcript, msg)
		c.mu.Unlock()
		c.observer.OnMessage(msg)
	}()

	if c.recorder != nil {
		if err := c.recorder.Record(msg); err != nil {
			c.logger.Warn("failed to record message",
				zap.String("sender", string(msg.Sender)),
				zap.Error(err))
		}
	}
}
