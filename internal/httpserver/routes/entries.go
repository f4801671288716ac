package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/mindhaven/internal/httpserver/deps"
	"github.com/MrSnakeDoc/mindhaven/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/mindhaven/internal/httpserver/mw"
)

func init() { Register(registerEntries) }

func registerEntries(r chi.Router, d deps.Deps) {
	api := r.With(mw.EnforceHost(d.AllowedHosts, d.Logger))
	limited := api.With(aiLimit(d))

	api.Get("/api/entries", handlers.ListEntries(d))
	limited.Post("/api/entries", handlers.CreateEntry(d))
	api.Put("/api/entries/{id}", handlers.UpdateEntry(d))
	api.Delete("/api/entries/{id}", handlers.DeleteEntry(d))
	api.Get("/api/export", handlers.Export(d))
}

// aiLimit guards routes that call the model. Every call builds a separate
// limiter, so the JSON API, chat and UI surfaces each get their own budget.
func aiLimit(d deps.Deps) Middleware {
	return mw.RateLimit(aiLimitConfig(d))
}

func aiLimitConfig(d deps.Deps) mw.RateLimitConfig {
	return mw.RateLimitConfig{
		Burst:      d.RateLimitBurst,
		PerMinute:  d.RateLimitPerMin,
		TrustProxy: d.TrustProxy,
		Logger:     d.Logger,
	}
}
