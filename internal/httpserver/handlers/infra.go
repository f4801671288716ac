package handlers

import (
	"context"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/MrSnakeDoc/mindhaven/internal/httpserver/deps"
)

type componentStatus struct {
	OK     bool   `json:"ok"`
	Mode   string `json:"mode,omitempty"`
	Impact string `json:"impact,omitempty"`
	Error  string `json:"error,omitempty"`
}

type infraResponse struct {
	ServiceMode string                     `json:"service_mode"`
	Components  map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		components := map[string]componentStatus{
			"store":   checkStore(ctx, d),
			"redis":   checkRedis(ctx, d),
			"ai":      checkModel(d),
			"music":   checkMusic(d),
			"chatlog": checkChatLog(d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			ServiceMode: determineServiceMode(components),
			Components:  components,
		})
	}
}

func determineServiceMode(components map[string]componentStatus) string {
	if !components["store"].OK {
		return "critical" // nothing can be saved
	}
	for _, name := range []string{"redis", "ai"} {
		if c, ok := components[name]; ok && !c.OK {
			return "degraded"
		}
	}
	return "operational"
}

func checkStore(ctx context.Context, d deps.Deps) componentStatus {
	if err := d.Journal.Ping(ctx); err != nil {
		return componentStatus{OK: false, Mode: d.Backend, Impact: "journal-unavailable", Error: err.Error()}
	}
	return componentStatus{OK: true, Mode: d.Backend}
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{OK: true, Mode: "disabled", Impact: "sessions-in-memory"}
	}
	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{OK: false, Mode: "degraded", Impact: "sessions-and-comment-cache-unavailable", Error: "timeout"}
	}
	return componentStatus{OK: true, Mode: "optimal"}
}

func checkModel(d deps.Deps) componentStatus {
	if d.Breaker == nil {
		return componentStatus{OK: true, Mode: "unguarded"}
	}
	state := d.Breaker.State()
	if state == gobreaker.StateOpen.String() {
		return componentStatus{OK: false, Mode: state, Impact: "fallback-replies"}
	}
	return componentStatus{OK: true, Mode: state}
}

func checkMusic(d deps.Deps) componentStatus {
	if !d.MusicEnabled {
		return componentStatus{OK: true, Mode: "disabled", Impact: "no-song-suggestions"}
	}
	return componentStatus{OK: true, Mode: "spotify"}
}

func checkChatLog(d deps.Deps) componentStatus {
	if d.ChatLog == nil {
		return componentStatus{OK: true, Mode: "disabled"}
	}
	return componentStatus{OK: true, Mode: d.ChatLog.Dir()}
}
