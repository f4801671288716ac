// Package ai wraps the hosted language model used for supportive comments
// and chat replies.
package ai

import (
	"context"
	"errors"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one prior turn handed to the model as history.
type Message struct {
	Role Role
	Text string
}

// Model generates text for prompt given an optional conversation history.
type Model interface {
	Generate(ctx context.Context, history []Message, prompt string) (string, error)
}

// ErrEmptyResponse is returned when the model answered with no text, for
// example because every candidate was blocked by a safety filter.
var ErrEmptyResponse = errors.New("model returned no text")

// Sampling parameters shared by every call.
const (
	Temperature     float32 = 0.9
	TopP            float32 = 1
	TopK            float32 = 32
	MaxOutputTokens int32   = 8192
)
