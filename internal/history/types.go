package history

import (
	"time"

	"noor-chat/internal/chat"
)

// History is the on-disk document: every kept session, oldest first
type History struct {
	Sessions []Session `json:"sessions"`
}

// Session is one run of the chat client, or the span between two clears
type Session struct {
	ID        string         `json:"id"`
	StartedAt time.Time      `json:"started_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Messages  []chat.Message `json:"messages"`
}

// SearchCount returns how many replies in the session came with web material
func (s Session) SearchCount() int {
	n := 0
	for _, m := range s.Messages {
		if m.Sender == chat.SenderRawInfo {
			n++
		}
	}
	return n
}
