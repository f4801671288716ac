package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/mindhaven/internal/httpserver/deps"
	"github.com/MrSnakeDoc/mindhaven/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/mindhaven/internal/httpserver/mw"
)

func init() { Register(registerOps) }

func registerOps(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))

	restricted := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
	restricted.Get("/readyz", handlers.Readyz(d))
	restricted.Get("/infra", handlers.Infra(d))
	if d.Metrics != nil {
		restricted.Method("GET", "/metrics", d.Metrics.Handler())
	}

	ops := restricted.With(mw.EnforceHost(d.AllowedHosts, d.Logger))
	ops.Post("/ops/sweep", handlers.Sweep(d))
	ops.Post("/ops/comments/flush", handlers.FlushComments(d))
}
