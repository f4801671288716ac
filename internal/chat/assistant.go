package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/mindhaven/internal/ai"
	"github.com/MrSnakeDoc/mindhaven/internal/domain"
	"github.com/MrSnakeDoc/mindhaven/internal/logger"
	"github.com/MrSnakeDoc/mindhaven/internal/metrics"
	"github.com/MrSnakeDoc/mindhaven/internal/music"
)

// FallbackReply is sent when the model cannot answer.
const FallbackReply = "I'm having trouble finding the right words right now, but I'm here for you. Could you tell me a bit more?"

const songLine = "Here's a song recommendation to uplift your mood: %s 🎵"

// Recommender finds a song for a message; nil means none.
type Recommender interface {
	Recommend(ctx context.Context, text string) *music.Track
}

// Reply is the assistant's answer to one turn.
type Reply struct {
	Text     string       `json:"text"`
	Track    *music.Track `json:"track,omitempty"`
	Fallback bool         `json:"fallback,omitempty"`
}

type Assistant struct {
	model       ai.Model
	recommender Recommender
	timeout     time.Duration
	log         logger.Logger
	metrics     *metrics.Collector
	now         func() time.Time
}

// NewAssistant builds an assistant. recommender may be nil.
func NewAssistant(model ai.Model, recommender Recommender, timeout time.Duration, log logger.Logger, m *metrics.Collector) *Assistant {
	return &Assistant{
		model:       model,
		recommender: recommender,
		timeout:     timeout,
		log:         log,
		metrics:     m,
		now:         time.Now,
	}
}

// Turn answers userText in the context of t and returns the extended
// transcript. t itself is not modified. Only blank input is an error.
func (a *Assistant) Turn(ctx context.Context, t Transcript, userText string) (Transcript, Reply, error) {
	if strings.TrimSpace(userText) == "" {
		return t, Reply{}, fmt.Errorf("%w: please enter a message before sending", domain.ErrValidation)
	}

	callCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeoutCause(ctx, a.timeout, ai.ErrModelTimeout)
		defer cancel()
	}

	reply := Reply{}
	out, err := a.model.Generate(callCtx, t.History(), ai.ChatPrompt(userText))
	if err != nil || strings.TrimSpace(out) == "" {
		a.log.Warn("chat generation failed, using fallback", logger.Error(err))
		a.metrics.ChatTurn(metrics.OutcomeFallback)
		reply.Text = FallbackReply
		reply.Fallback = true
	} else {
		a.metrics.ChatTurn(metrics.OutcomeOK)
		reply.Text = strings.TrimSpace(out)
	}

	if a.recommender != nil {
		if track := a.recommender.Recommend(ctx, userText); track != nil {
			reply.Track = track
			reply.Text += "\n\n" + fmt.Sprintf(songLine, track.Markdown())
		}
	}

	now := a.now().UTC()
	next := t.Append(
		Message{Role: RoleUser, Text: userText, At: now},
		Message{Role: RoleModel, Text: reply.Text, At: now, Track: reply.Track},
	)
	return next, reply, nil
}

// Reset starts a new conversation.
func (a *Assistant) Reset() Transcript {
	return Transcript{}
}

// QuickPrompts lists canned openers for the chat page.
func (a *Assistant) QuickPrompts() []string {
	return ai.QuickPrompts()
}
