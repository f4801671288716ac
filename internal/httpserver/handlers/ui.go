package handlers

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/mindhaven/internal/chat"
	"github.com/MrSnakeDoc/mindhaven/internal/domain"
	"github.com/MrSnakeDoc/mindhaven/internal/flow"
	"github.com/MrSnakeDoc/mindhaven/internal/httpserver/deps"
	"github.com/MrSnakeDoc/mindhaven/internal/logger"
	"github.com/MrSnakeDoc/mindhaven/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = parsePageTemplates()

func parsePageTemplates() map[flow.Page]*template.Template {
	out := make(map[flow.Page]*template.Template, len(flow.Pages()))
	for _, p := range flow.Pages() {
		out[p] = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+string(p)+".html"))
	}
	return out
}

type pageData struct {
	Page         flow.Page
	Pages        []flow.Page
	Pending      *flow.Pending
	Flash        *session.Flash
	Days         []domain.DayGroup
	LoadError    string
	Transcript   []chatView
	Prompts      []string
	Backend      string
	MusicEnabled bool
	Version      string
}

type chatView struct {
	User     bool
	Text     string
	TrackURL string
	Track    string
}

// Page renders the session's current page. The flash is shown once.
func Page(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := loadSession(w, r, d)

		data := pageData{
			Page:         s.UI.Page,
			Pages:        flow.Pages(),
			Pending:      s.UI.Pending,
			Flash:        s.Flash,
			Backend:      d.Backend,
			MusicEnabled: d.MusicEnabled,
			Version:      d.Version,
		}
		if _, ok := pageTemplates[data.Page]; !ok {
			data.Page = flow.PageWelcome
		}

		switch data.Page {
		case flow.PageViewJournals:
			days, err := d.Journal.View(r.Context())
			if err != nil {
				data.LoadError = UserMessage(err)
			}
			data.Days = days
		case flow.PageChat:
			for _, m := range s.Transcript.Messages {
				v := chatView{User: m.Role == chat.RoleUser, Text: m.Text}
				if m.Track != nil {
					v.Track = m.Track.Name + " by " + m.Track.Artist
					v.TrackURL = m.Track.URL
				}
				data.Transcript = append(data.Transcript, v)
			}
			data.Prompts = d.Assistant.QuickPrompts()
		}

		var buf bytes.Buffer
		if err := pageTemplates[data.Page].ExecuteTemplate(&buf, "layout", data); err != nil {
			reqLog(r, d).Error("failed to render page", logger.String("page", string(data.Page)), logger.Error(err))
			http.Error(w, "Something went wrong.", http.StatusInternalServerError)
			return
		}

		if s.Flash != nil {
			s.Flash = nil
			saveSession(r.Context(), d, s)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = buf.WriteTo(w)
	}
}

// Event applies one form-posted UI event and redirects back to the page.
func Event(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Malformed form.", http.StatusBadRequest)
			return
		}

		ev, err := parseEvent(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s := loadSession(w, r, d)
		next, effects := flow.Reduce(s.UI, ev)
		if d.ModelLimit != nil && callsModel(effects) && !d.ModelLimit.Allow(w, r) {
			return
		}
		s.UI = next
		s.Flash = nil
		for _, eff := range effects {
			s.Flash = runEffect(r.Context(), d, &s, eff)
		}
		saveSession(r.Context(), d, s)

		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func parseEvent(r *http.Request) (flow.Event, error) {
	id := r.PostFormValue("id")
	text := r.PostFormValue("text")

	switch name := r.PostFormValue("event"); name {
	case "navigate":
		p, ok := flow.ParsePage(r.PostFormValue("page"))
		if !ok {
			return nil, fmt.Errorf("unknown page %q", r.PostFormValue("page"))
		}
		return flow.Navigate{Page: p}, nil
	case "submit_entry":
		return flow.SubmitEntry{Text: text}, nil
	case "request_modify":
		return flow.RequestModify{ID: id}, nil
	case "confirm_modify":
		return flow.ConfirmModify{ID: id, Text: text}, nil
	case "request_delete":
		return flow.RequestDelete{ID: id}, nil
	case "confirm_delete":
		return flow.ConfirmDelete{ID: id}, nil
	case "cancel":
		return flow.Cancel{}, nil
	case "send_chat":
		return flow.SendChat{Text: text}, nil
	case "reset_chat":
		return flow.ResetChat{}, nil
	default:
		return nil, fmt.Errorf("unknown event %q", name)
	}
}

func runEffect(ctx context.Context, d deps.Deps, s *session.Session, eff flow.Effect) *session.Flash {
	switch e := eff.(type) {
	case flow.CreateEntry:
		entry, err := d.Journal.Submit(ctx, e.Text)
		if err != nil {
			return flashFor(err)
		}
		text := "Journal entry saved."
		if c := strings.TrimSpace(entry.Comment); c != "" {
			text += " " + c
		}
		return &session.Flash{Kind: session.FlashSuccess, Text: text}

	case flow.UpdateEntry:
		if err := d.Journal.Modify(ctx, e.ID, e.Text); err != nil {
			if errors.Is(err, domain.ErrValidation) {
				// keep the editor open
				s.UI.Pending = &flow.Pending{Kind: flow.ActionModify, EntryID: e.ID}
			}
			return flashFor(err)
		}
		return &session.Flash{Kind: session.FlashSuccess, Text: "Entry updated."}

	case flow.DeleteEntry:
		if err := d.Journal.Delete(ctx, e.ID); err != nil {
			return flashFor(err)
		}
		return &session.Flash{Kind: session.FlashSuccess, Text: "Entry deleted."}

	case flow.ChatTurn:
		if _, err := chatTurn(ctx, d, s, e.Text); err != nil {
			return flashFor(err)
		}
		return nil

	case flow.ClearChat:
		clearChat(ctx, d, s)
		return &session.Flash{Kind: session.FlashInfo, Text: "Conversation cleared."}
	}
	return nil
}

func callsModel(effects []flow.Effect) bool {
	for _, eff := range effects {
		switch eff.(type) {
		case flow.CreateEntry, flow.ChatTurn:
			return true
		}
	}
	return false
}

func flashFor(err error) *session.Flash {
	kind := session.FlashError
	if errors.Is(err, domain.ErrNotFound) {
		kind = session.FlashInfo
	}
	return &session.Flash{Kind: kind, Text: UserMessage(err)}
}
