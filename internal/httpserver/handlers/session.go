package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/mindhaven/internal/chat"
	"github.com/MrSnakeDoc/mindhaven/internal/httpserver/deps"
	"github.com/MrSnakeDoc/mindhaven/internal/logger"
	"github.com/MrSnakeDoc/mindhaven/internal/session"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "mindhaven_session"

// loadSession returns the caller's session, starting a new one (and setting
// the cookie) when the cookie is missing, malformed or expired.
func loadSession(w http.ResponseWriter, r *http.Request, d deps.Deps) session.Session {
	if c, err := r.Cookie(SessionCookie); err == nil && session.ValidID(c.Value) {
		s, err := d.Sessions.Load(r.Context(), c.Value)
		if err == nil {
			return s
		}
		if !errors.Is(err, session.ErrNotFound) {
			reqLog(r, d).Warn("failed to load session, starting a new one", logger.Error(err))
		} else if s, ok := resumeSession(r, d, c.Value); ok {
			return s
		}
	}

	s := session.New()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   d.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return s
}

// resumeSession rebuilds an expired session from the conversation log so a
// returning visitor keeps their chat history.
func resumeSession(r *http.Request, d deps.Deps, id string) (session.Session, bool) {
	if d.ChatLog == nil {
		return session.Session{}, false
	}
	log := reqLog(r, d)

	msgs, err := d.ChatLog.Read(r.Context(), id)
	if err != nil {
		log.Warn("failed to read chat log", logger.Session(id), logger.Error(err))
		return session.Session{}, false
	}
	if len(msgs) == 0 {
		return session.Session{}, false
	}

	s := session.Resume(id, chat.Transcript{Messages: msgs})
	saveSession(r.Context(), d, s)
	log.Info("session resumed from chat log", logger.Session(id), logger.Int("messages", len(msgs)))
	return s, true
}

func saveSession(ctx context.Context, d deps.Deps, s session.Session) {
	if err := d.Sessions.Save(ctx, s); err != nil {
		logger.FromContext(ctx, d.Logger).Error("failed to save session", logger.Session(s.ID), logger.Error(err))
	}
}
