package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"noor-chat/internal/backend"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Chat(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*backend.ChatResponse)
	return resp, args.Error(1)
}

// blockingBackend holds every request until release is closed
type blockingBackend struct {
	started chan struct{}
	release chan struct{}
	calls   int
	mu      sync.Mutex
}

func newBlockingBackend() *blockingBackend {
	return &blockingBackend{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (b *blockingBackend) Chat(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	b.started <- struct{}{}
	select {
	case <-b.release:
		return &backend.ChatResponse{Response: "done"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type memStore struct {
	theme     string
	webSearch bool
	sets      int
}

func (s *memStore) Theme() string { return s.theme }
func (s *memStore) SetTheme(theme string) error {
	s.theme = theme
	s.sets++
	return nil
}
func (s *memStore) WebSearch() bool { return s.webSearch }
func (s *memStore) SetWebSearch(enabled bool) error {
	s.webSearch = enabled
	s.sets++
	return nil
}

// recordingObserver logs every callback as a short event name
type recordingObserver struct {
	NopObserver
	mu     sync.Mutex
	events []string
}

func (o *recordingObserver) add(e string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *recordingObserver) OnMessage(m Message) { o.add("message:" + string(m.Sender)) }
func (o *recordingObserver) OnWarning(string) { o.add("warning") }
func (o *recordingObserver) OnInputCleared() { o.add("input-cleared") }
func (o *recordingObserver) OnFocusInput() { o.add("focus") }
func (o *recordingObserver) OnCleared([]Message) { o.add("cleared") }
func (o *recordingObserver) OnThemeChanged(t Theme) { o.add("theme:" + string(t)) }
func (o *recordingObserver) OnWebSearchChanged(bool) { o.add("web-search") }
func (o *recordingObserver) OnPending(p bool) {
	if p {
		o.add("loading-on")
	} else {
		o.add("loading-off")
	}
}

func (o *recordingObserver) Events() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.events...)
}

type sliceRecorder struct {
	msgs []Message
}

func (r *sliceRecorder) Record(m Message) error {
	r.msgs = append(r.msgs, m)
	return nil
}

func senders(msgs []Message) []Sender {
	out := make([]Sender, len(msgs))
	for i, m := range msgs {
		out[i] = m.Sender
	}
	return out
}

func TestNewControllerStartsWithGreeting(t *testing.T) {
	c := NewController(&mockBackend{}, &memStore{}, WithGreeting("welcome"))

	transcript := c.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, SenderBot, transcript[0].Sender)
	assert.Equal(t, "welcome", transcript[0].Text)
	assert.False(t, c.Pending())
	assert.Equal(t, ThemeDark, c.Theme())
	assert.False(t, c.WebSearchEnabled())
}

func TestNewControllerReappliesPreferences(t *testing.T) {
	c := NewController(&mockBackend{}, &memStore{theme: "light", webSearch: true})
	assert.Equal(t, ThemeLight, c.Theme())
	assert.True(t, c.WebSearchEnabled())
}

func TestSubmitRejectsEmptyInput(t *testing.T) {
	be := &mockBackend{}
	obs := &recordingObserver{}
	c := NewController(be, &memStore{}, WithObserver(obs))

	for _, text := range []string{"", "   ", "\n\t "} {
		err := c.Submit(context.Background(), text)
		assert.ErrorIs(t, err, ErrEmptyInput)
	}

	be.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
	assert.Len(t, c.Transcript(), 1)
	assert.Equal(t, []string{"warning", "warning", "warning"}, obs.Events())
}

func TestSubmitSimpleReply(t *testing.T) {
	be := &mockBackend{}
	be.On("Chat", mock.Anything, backend.ChatRequest{Message: "hello", WebSearch: false}).
		Return(&backend.ChatResponse{Response: "hi there"}, nil).Once()

	c := NewController(be, &memStore{})
	require.NoError(t, c.Submit(context.Background(), "hello"))

	got := c.Transcript()[1:]
	require.Len(t, got, 2)
	assert.Equal(t, SenderUser, got[0].Sender)
	assert.Equal(t, "hello", got[0].Text)
	assert.Equal(t, SenderBot, got[1].Sender)
	assert.Equal(t, "hi there", got[1].Text)
	assert.False(t, c.Pending())
	be.AssertExpectations(t)
}

func TestSubmitRawInfoPrecedesBotReply(t *testing.T) {
	be := &mockBackend{}
	be.On("Chat", mock.Anything, backend.ChatRequest{Message: "weather?", WebSearch: true}).
		Return(&backend.ChatResponse{Response: "it is sunny", RawInfo: "Source: example.com"}, nil).Once()

	c := NewController(be, &memStore{webSearch: true})
	require.NoError(t, c.Submit(context.Background(), "weather?"))

	got := c.Transcript()[1:]
	require.Len(t, got, 3)
	assert.Equal(t, []Sender{SenderUser, SenderRawInfo, SenderBot}, senders(got))
	assert.Equal(t, "Source: example.com", got[1].Text)
	assert.Equal(t, "it is sunny", got[2].Text)
	assert.Equal(t, "Source: example.com", got[2].RawInfo)
	be.AssertExpectations(t)
}

func TestSubmitBlankRawInfoIsSkipped(t *testing.T) {
	be := &mockBackend{}
	be.On("Chat", mock.Anything, mock.Anything).
		Return(&backend.ChatResponse{Response: "ok", RawInfo: "  \n"}, nil)

	c := NewController(be, &memStore{})
	require.NoError(t, c.Submit(context.Background(), "q"))
	assert.Equal(t, []Sender{SenderBot, SenderUser, SenderBot}, senders(c.Transcript()))
}

func TestSubmitServerSignaledError(t *testing.T) {
	be := &mockBackend{}
	be.On("Chat", mock.Anything, mock.Anything).
		Return(&backend.ChatResponse{Error: "no message provided"}, nil)

	c := NewController(be, &memStore{})
	require.NoError(t, c.Submit(context.Background(), "x"))

	got := c.Transcript()[1:]
	require.Len(t, got, 2)
	assert.Equal(t, SenderError, got[1].Sender)
	assert.Equal(t, "no message provided", got[1].Text)
	assert.False(t, c.Pending())
}

func TestSubmitTransportFailure(t *testing.T) {
	be := &mockBackend{}
	be.On("Chat", mock.Anything, mock.Anything).
		Return(nil, &backend.StatusError{StatusCode: 502})
	obs := &recordingObserver{}

	c := NewController(be, &memStore{}, WithObserver(obs))
	require.NoError(t, c.Submit(context.Background(), "hello"))

	got := c.Transcript()[1:]
	require.Len(t, got, 2)
	assert.Equal(t, SenderUser, got[0].Sender)
	assert.Equal(t, SenderError, got[1].Sender)
	assert.Equal(t, TransportErrorText, got[1].Text)
	assert.False(t, c.Pending())

	assert.Equal(t, []string{
		"message:user",
		"input-cleared",
		"loading-on",
		"message:error",
		"loading-off",
		"focus",
	}, obs.Events())
}

func TestSubmitWhilePendingIsDropped(t *testing.T) {
	be := newBlockingBackend()
	c := NewController(be, &memStore{})

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background(), "first") }()
	<-be.started

	assert.True(t, c.Pending())
	before := c.Transcript()

	err := c.Submit(context.Background(), "second")
	assert.ErrorIs(t, err, ErrPending)
	assert.Equal(t, before, c.Transcript())

	close(be.release)
	require.NoError(t, <-done)

	assert.False(t, c.Pending())
	assert.Equal(t, 1, be.calls)
	assert.Equal(t, []Sender{SenderBot, SenderUser, SenderBot}, senders(c.Transcript()))
}

func TestSubmitTimeout(t *testing.T) {
	be := newBlockingBackend()
	c := NewController(be, &memStore{}, WithTimeout(20*time.Millisecond))

	require.NoError(t, c.Submit(context.Background(), "slow"))
	last := c.Transcript()[2]
	assert.Equal(t, SenderError, last.Sender)
	assert.Equal(t, TransportErrorText, last.Text)
	assert.False(t, c.Pending())
}

func TestPendingClearedWhenObserverPanics(t *testing.T) {
	be := &mockBackend{}
	be.On("Chat", mock.Anything, mock.Anything).Return(&backend.ChatResponse{Response: "boom"}, nil)

	c := NewController(be, &memStore{}, WithObserver(panicOnBot{}))
	assert.Panics(t, func() { c.Submit(context.Background(), "hi") })
	assert.False(t, c.Pending())
}

type panicOnBot struct{ NopObserver }

func (panicOnBot) OnMessage(m Message) {
	if m.Sender == SenderBot {
		panic("render failed")
	}
}

func TestToggleWebSearchAffectsNextRequest(t *testing.T) {
	be := &mockBackend{}
	be.On("Chat", mock.Anything, mock.MatchedBy(func(r backend.ChatRequest) bool { return r.WebSearch })).
		Return(&backend.ChatResponse{Response: "searched"}, nil).Once()
	store := &memStore{}

	c := NewController(be, store)
	assert.True(t, c.ToggleWebSearch())
	assert.True(t, store.webSearch)

	got := c.Transcript()
	require.Len(t, got, 2)
	assert.Equal(t, SenderSystem, got[1].Sender)
	assert.Equal(t, WebSearchOnText, got[1].Text)

	require.NoError(t, c.Submit(context.Background(), "news"))
	be.AssertExpectations(t)

	assert.False(t, c.ToggleWebSearch())
	assert.Equal(t, WebSearchOffText, c.Transcript()[len(c.Transcript())-1].Text)
}

func TestToggleThemePersists(t *testing.T) {
	store := &memStore{theme: "dark"}
	obs := &recordingObserver{}
	c := NewController(&mockBackend{}, store, WithObserver(obs))

	assert.Equal(t, ThemeLight, c.ToggleTheme())
	assert.Equal(t, "light", store.theme)
	assert.Equal(t, ThemeDark, c.ToggleTheme())
	assert.Equal(t, "dark", store.theme)
	assert.Equal(t, []string{"theme:light", "theme:dark"}, obs.Events())
	assert.Len(t, c.Transcript(), 1)
}

func TestClearConversation(t *testing.T) {
	be := &mockBackend{}
	be.On("Chat", mock.Anything, mock.Anything).Return(&backend.ChatResponse{Response: "r"}, nil)
	c := NewController(be, &memStore{}, WithGreeting("hi"))

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Submit(context.Background(), "q"))
	}
	c.ToggleWebSearch()
	require.Len(t, c.Transcript(), 8)

	assert.False(t, c.ClearConversation(nil))
	assert.False(t, c.ClearConversation(func() bool { return false }))
	assert.Len(t, c.Transcript(), 8)

	assert.True(t, c.ClearConversation(func() bool { return true }))
	got := c.Transcript()
	require.Len(t, got, 1)
	assert.Equal(t, "hi", got[0].Text)

	// clearing an already-cleared transcript keeps the greeting
	assert.True(t, c.ClearConversation(func() bool { return true }))
	assert.Len(t, c.Transcript(), 1)
}

func TestRecorderSeesAppendedMessages(t *testing.T) {
	be := &mockBackend{}
	be.On("Chat", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: refused"))
	rec := &sliceRecorder{}

	c := NewController(be, &memStore{}, WithRecorder(rec))
	require.NoError(t, c.Submit(context.Background(), "ping"))

	assert.Equal(t, []Sender{SenderUser, SenderError}, senders(rec.msgs))
}

func TestStartReplaysState(t *testing.T) {
	obs := &recordingObserver{}
	c := NewController(&mockBackend{}, &memStore{theme: "light"}, WithObserver(obs))
	c.Start()
	assert.Equal(t, []string{"theme:light", "web-search", "message:bot", "focus"}, obs.Events())
}

func TestThemeToggle(t *testing.T) {
	assert.Equal(t, ThemeLight, ThemeDark.Toggle())
	assert.Equal(t, ThemeDark, ThemeLight.Toggle())
	assert.Equal(t, WebSearchOnLabel, WebSearchLabel(true))
	assert.Equal(t, WebSearchOffLabel, WebSearchLabel(false))
}
