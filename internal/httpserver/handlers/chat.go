package handlers

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/mindhaven/internal/chat"
	"github.com/MrSnakeDoc/mindhaven/internal/httpserver/deps"
	"github.com/MrSnakeDoc/mindhaven/internal/logger"
	"github.com/MrSnakeDoc/mindhaven/internal/session"
)

type chatRequest struct {
	Message string `json:"message" validate:"required,notblank,max=4000"`
}

type chatResponse struct {
	Reply      *chat.Reply    `json:"reply,omitempty"`
	Transcript []chat.Message `json:"transcript"`
}

type promptsResponse struct {
	Prompts []string `json:"prompts"`
}

// chatTurn runs one turn against the session transcript and mirrors the new
// messages to the conversation log when one is configured.
func chatTurn(ctx context.Context, d deps.Deps, s *session.Session, text string) (chat.Reply, error) {
	before := s.Transcript.Len()
	next, reply, err := d.Assistant.Turn(ctx, s.Transcript, text)
	if err != nil {
		return chat.Reply{}, err
	}
	s.Transcript = next

	if d.ChatLog != nil {
		if err := d.ChatLog.Append(ctx, s.ID, next.Messages[before:]...); err != nil {
			logger.FromContext(ctx, d.Logger).Warn("failed to write conversation log", logger.Session(s.ID), logger.Error(err))
		}
	}
	return reply, nil
}

func clearChat(ctx context.Context, d deps.Deps, s *session.Session) {
	s.Transcript = d.Assistant.Reset()
	if d.ChatLog != nil {
		if err := d.ChatLog.Remove(ctx, s.ID); err != nil {
			logger.FromContext(ctx, d.Logger).Warn("failed to remove conversation log", logger.Session(s.ID), logger.Error(err))
		}
	}
}

func transcriptOf(s session.Session) []chat.Message {
	if s.Transcript.Messages == nil {
		return []chat.Message{}
	}
	return s.Transcript.Messages
}

func SendChat(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, reqLog(r, d), err)
			return
		}

		s := loadSession(w, r, d)
		reply, err := chatTurn(r.Context(), d, &s, req.Message)
		if err != nil {
			writeError(w, reqLog(r, d), err)
			return
		}
		saveSession(r.Context(), d, s)

		writeJSON(w, http.StatusOK, chatResponse{Reply: &reply, Transcript: transcriptOf(s)})
	}
}

func ResetChat(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := loadSession(w, r, d)
		clearChat(r.Context(), d, &s)
		saveSession(r.Context(), d, s)
		w.WriteHeader(http.StatusNoContent)
	}
}

func ChatTranscript(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := loadSession(w, r, d)
		writeJSON(w, http.StatusOK, chatResponse{Transcript: transcriptOf(s)})
	}
}

func ChatPrompts(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, promptsResponse{Prompts: d.Assistant.QuickPrompts()})
	}
}
