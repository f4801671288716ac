package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/mindhaven/internal/domain"
	"github.com/MrSnakeDoc/mindhaven/internal/httpserver/deps"
	"github.com/MrSnakeDoc/mindhaven/internal/logger"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage is the text shown for err. Internal causes are not exposed.
func UserMessage(err error) string {
	switch StatusFor(err) {
	case http.StatusBadRequest:
		return strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
	case http.StatusNotFound:
		return "That entry is already gone."
	case http.StatusServiceUnavailable:
		return "Your journal is unavailable right now. Please try again in a moment."
	default:
		return "Something went wrong."
	}
}

func reqLog(r *http.Request, d deps.Deps) logger.Logger {
	return logger.FromContext(r.Context(), d.Logger)
}

func writeError(w http.ResponseWriter, log logger.Logger, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", logger.Int("status", status), logger.Error(err))
	}

	resp := errorResponse{Error: UserMessage(err)}
	var verr *validationError
	if errors.As(err, &verr) {
		resp.Fields = verr.fields
	}
	writeJSON(w, status, resp)
}
