// Package chat implements the supportive chat assistant.
package chat

import (
	"time"

	"github.com/MrSnakeDoc/mindhaven/internal/ai"
	"github.com/MrSnakeDoc/mindhaven/internal/music"
)

type Role = ai.Role

const (
	RoleUser  = ai.RoleUser
	RoleModel = ai.RoleModel
)

// Message is one line of a conversation.
type Message struct {
	Role  Role         `json:"role"`
	Text  string       `json:"text"`
	At    time.Time    `json:"at"`
	Track *music.Track `json:"track,omitempty"`
}

// Transcript is an ordered conversation. Values are never modified in place:
// Append returns a new transcript and leaves the receiver untouched.
type Transcript struct {
	Messages []Message `json:"messages"`
}

func (t Transcript) Append(msgs ...Message) Transcript {
	out := make([]Message, 0, len(t.Messages)+len(msgs))
	out = append(out, t.Messages...)
	out = append(out, msgs...)
	return Transcript{Messages: out}
}

func (t Transcript) Len() int { return len(t.Messages) }

// History converts the transcript to model history.
func (t Transcript) History() []ai.Message {
	h := make([]ai.Message, 0, len(t.Messages))
	for _, m := range t.Messages {
		h = append(h, ai.Message{Role: m.Role, Text: m.Text})
	}
	return h
}
