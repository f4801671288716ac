package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/mindhaven/internal/httpserver/deps"
	"github.com/MrSnakeDoc/mindhaven/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/mindhaven/internal/httpserver/mw"
)

func init() { Register(registerUI) }

func registerUI(r chi.Router, d deps.Deps) {
	ui := r.With(mw.EnforceHost(d.AllowedHosts, d.Logger))

	// Only events that reach the model are charged.
	d.ModelLimit = mw.NewClientLimiter(aiLimitConfig(d))

	ui.Get("/", handlers.Page(d))
	ui.Post("/ui/events", handlers.Event(d))
	ui.Get("/export", handlers.Export(d))
}
