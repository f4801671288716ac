package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/mindhaven/internal/httpserver/deps"
	"github.com/MrSnakeDoc/mindhaven/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/mindhaven/internal/httpserver/mw"
)

func init() { Register(registerChat) }

func registerChat(r chi.Router, d deps.Deps) {
	api := r.With(mw.EnforceHost(d.AllowedHosts, d.Logger))

	api.With(aiLimit(d)).Post("/api/chat", handlers.SendChat(d))
	api.Get("/api/chat", handlers.ChatTranscript(d))
	api.Delete("/api/chat", handlers.ResetChat(d))
	api.Get("/api/chat/prompts", handlers.ChatPrompts(d))
}
