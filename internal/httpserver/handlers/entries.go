package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/mindhaven/internal/domain"
	"github.com/MrSnakeDoc/mindhaven/internal/export"
	"github.com/MrSnakeDoc/mindhaven/internal/httpserver/deps"
)

type entryRequest struct {
	Text string `json:"text" validate:"required,notblank,max=20000"`
}

type entriesResponse struct {
	Days []domain.DayGroup `json:"days"`
}

// ListEntries returns entries grouped by day, newest first. Comments are
// included unless ?comments=false.
func ListEntries(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		withComments := true
		if v := r.URL.Query().Get("comments"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "comments must be a boolean"})
				return
			}
			withComments = b
		}

		var (
			days []domain.DayGroup
			err  error
		)
		if withComments {
			days, err = d.Journal.View(r.Context())
		} else {
			days, err = d.Journal.Days(r.Context())
		}
		if err != nil {
			writeError(w, reqLog(r, d), err)
			return
		}
		writeJSON(w, http.StatusOK, entriesResponse{Days: days})
	}
}

func CreateEntry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req entryRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, reqLog(r, d), err)
			return
		}

		entry, err := d.Journal.Submit(r.Context(), req.Text)
		if err != nil {
			writeError(w, reqLog(r, d), err)
			return
		}
		w.Header().Set("Location", "/api/entries/"+entry.ID)
		writeJSON(w, http.StatusCreated, entry)
	}
}

func UpdateEntry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req entryRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, reqLog(r, d), err)
			return
		}

		if err := d.Journal.Modify(r.Context(), chi.URLParam(r, "id"), req.Text); err != nil {
			writeError(w, reqLog(r, d), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteEntry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Journal.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, reqLog(r, d), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Export streams every entry as a download. format defaults to txt.
func Export(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("format")
		if raw == "" {
			raw = string(export.FormatText)
		}
		format, err := export.ParseFormat(raw)
		if err != nil {
			writeError(w, reqLog(r, d), err)
			return
		}

		doc, err := d.Journal.Export(r.Context(), format)
		if err != nil {
			writeError(w, reqLog(r, d), err)
			return
		}
		writeDocument(w, doc)
	}
}

func writeDocument(w http.ResponseWriter, doc export.Document) {
	w.Header().Set("Content-Type", doc.MIMEType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}
