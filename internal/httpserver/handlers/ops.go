package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/mindhaven/internal/httpserver/deps"
	"github.com/MrSnakeDoc/mindhaven/internal/logger"
)

type flushResponse struct {
	Flushed int `json:"flushed"`
}

// Sweep asks the janitor for an immediate cleanup pass.
func Sweep(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.SweepTrigger == nil {
			http.Error(w, "cleanup is not scheduled on this instance\n", http.StatusNotFound)
			return
		}

		select {
		case d.SweepTrigger <- struct{}{}:
			d.Logger.Info("manual sweep triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusAccepted)
			if _, err := w.Write([]byte("✅ Sweep triggered successfully\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		default:
			d.Logger.Warn("sweep already in progress",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusTooManyRequests)
			if _, err := w.Write([]byte("⏳ Sweep already in progress, please wait\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		}
	}
}

// FlushComments drops every cached comment so the next view regenerates them.
func FlushComments(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Comments == nil {
			writeJSON(w, http.StatusOK, flushResponse{})
			return
		}
		n, err := d.Comments.Flush(r.Context())
		if err != nil {
			d.Logger.Error("failed to flush comment cache", logger.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "comment cache unavailable"})
			return
		}
		d.Logger.Info("comment cache flushed", logger.Int("keys", n), logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusOK, flushResponse{Flushed: n})
	}
}
