package chat

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who produced a transcript entry
type Sender string

const (
	SenderUser    Sender = "user"
	SenderBot     Sender = "bot"
	SenderSystem  Sender = "system"
	SenderError   Sender = "error"
	SenderRawInfo Sender = "raw_info" // retrieved web material shown before a bot reply
)

// Message is one transcript entry. It is never modified after creation.
type Message struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	RawInfo   string    `json:"raw_info,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func newMessage(sender Sender, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// Theme is the active color scheme
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Toggle returns the other theme
func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// Fixed user-facing texts
const (
	TransportErrorText = "Sorry, a connection error occurred. Please try again."
	EmptyInputWarning  = "Cannot send an empty message."
	PendingWarning     = "Please wait for the current reply to arrive."
	WebSearchOnText    = "Web search enabled. Noor will look up current information online."
	WebSearchOffText   = "Web search disabled. Noor will rely on its stored knowledge only."
	WebSearchOnLabel   = "Search: on"
	WebSearchOffLabel  = "Search: off"
)

// WebSearchLabel is the status label for the given mode
func WebSearchLabel(enabled bool) string {
	if enabled {
		return WebSearchOnLabel
	}
	return WebSearchOffLabel
}
