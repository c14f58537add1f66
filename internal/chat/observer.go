package chat

// Observer receives controller state changes. Callbacks run synchronously on
// the goroutine that caused the change; they may read controller state but
// must not call Submit, the toggles, or ClearConversation.
type Observer interface {
	OnMessage(msg Message)
	// OnPending shows (true) or removes (false) the loading indicator.
	OnPending(pending bool)
	OnThemeChanged(theme Theme)
	OnWebSearchChanged(enabled bool)
	OnCleared(remaining []Message)
	OnWarning(text string)
	OnInputCleared()
	OnFocusInput()
}

// NopObserver ignores every notification
type NopObserver struct{}

func (NopObserver) OnMessage(Message) {}
func (NopObserver) OnPending(bool) {}
func (NopObserver) OnThemeChanged(Theme) {}
func (NopObserver) OnWebSearchChanged(bool) {}
func (NopObserver) OnCleared([]Message) {}
func (NopObserver) OnWarning(string) {}
func (NopObserver) OnInputCleared() {}
func (NopObserver) OnFocusInput() {}

// Recorder persists transcript entries as they are appended
type Recorder interface {
	Record(msg Message) error
}
