// Package flow is the page state machine behind the web UI.
//
// Reduce is a pure function from the current state and a user event to the
// next state plus the side effects the caller must run. Modify and delete
// are two-step: a Request event records the pending action and only a
// matching Confirm event produces the effect.
package flow

// Page is one screen of the application.
type Page string

const (
	PageWelcome      Page = "welcome"
	PageAddJournal   Page = "add"
	PageViewJournals Page = "journals"
	PageChat         Page = "chat"
	PageSettings     Page = "settings"
)

// Pages lists every page in navigation order.
func Pages() []Page {
	return []Page{PageWelcome, PageAddJournal, PageViewJournals, PageChat, PageSettings}
}

// ParsePage validates a page name coming from a request.
func ParsePage(s string) (Page, bool) {
	for _, p := range Pages() {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// Title is the navigation label of the page.
func (p Page) Title() string {
	switch p {
	case PageWelcome:
		return "Home"
	case PageAddJournal:
		return "Add Journal"
	case PageViewJournals:
		return "View Journals"
	case PageChat:
		return "Chat"
	case PageSettings:
		return "Settings"
	default:
		return string(p)
	}
}

type ActionKind string

const (
	ActionModify ActionKind = "modify"
	ActionDelete ActionKind = "delete"
)

// Pending is a modify or delete waiting for confirmation.
type Pending struct {
	Kind    ActionKind `json:"kind"`
	EntryID string     `json:"entry_id"`
}

// State is the per-session UI state.
type State struct {
	Page    Page     `json:"page"`
	Pending *Pending `json:"pending,omitempty"`
}

// Initial is the state of a new session.
func Initial() State {
	return State{Page: PageWelcome}
}

// IsPending reports whether an action of kind is awaiting confirmation for id.
func (s State) IsPending(kind ActionKind, id string) bool {
	return s.Pending != nil && s.Pending.Kind == kind && s.Pending.EntryID == id
}

// Event is a user action.
type Event interface{ isEvent() }

type (
	Navigate      struct{ Page Page }
	SubmitEntry   struct{ Text string }
	RequestModify struct{ ID string }
	ConfirmModify struct{ ID, Text string }
	RequestDelete struct{ ID string }
	ConfirmDelete struct{ ID string }
	Cancel        struct{}
	SendChat      struct{ Text string }
	ResetChat     struct{}
)

func (Navigate) isEvent()      {}
func (SubmitEntry) isEvent()   {}
func (RequestModify) isEvent() {}
func (ConfirmModify) isEvent() {}
func (RequestDelete) isEvent() {}
func (ConfirmDelete) isEvent() {}
func (Cancel) isEvent()        {}
func (SendChat) isEvent()      {}
func (ResetChat) isEvent()     {}

// Effect is work the caller performs after a transition.
type Effect interface{ isEffect() }

type (
	CreateEntry struct{ Text string }
	UpdateEntry struct{ ID, Text string }
	DeleteEntry struct{ ID string }
	ChatTurn    struct{ Text string }
	ClearChat   struct{}
)

func (CreateEntry) isEffect() {}
func (UpdateEntry) isEffect() {}
func (DeleteEntry) isEffect() {}
func (ChatTurn) isEffect()    {}
func (ClearChat) isEffect()   {}

// Reduce computes the next state and the effects for ev. s is not modified.
func Reduce(s State, ev Event) (State, []Effect) {
	next := State{Page: s.Page}
	if s.Pending != nil {
		p := *s.Pending
		next.Pending = &p
	}
	if _, ok := ParsePage(string(next.Page)); !ok {
		next.Page = PageWelcome
	}

	switch e := ev.(type) {
	case Navigate:
		if _, ok := ParsePage(string(e.Page)); ok {
			next.Page = e.Page
		}
		next.Pending = nil
		return next, nil

	case SubmitEntry:
		next.Page = PageAddJournal
		next.Pending = nil
		return next, []Effect{CreateEntry{Text: e.Text}}

	case RequestModify:
		next.Page = PageViewJournals
		next.Pending = &Pending{Kind: ActionModify, EntryID: e.ID}
		return next, nil

	case ConfirmModify:
		if !next.IsPending(ActionModify, e.ID) {
			return next, nil
		}
		next.Pending = nil
		return next, []Effect{UpdateEntry{ID: e.ID, Text: e.Text}}

	case RequestDelete:
		next.Page = PageViewJournals
		next.Pending = &Pending{Kind: ActionDelete, EntryID: e.ID}
		return next, nil

	case ConfirmDelete:
		if !next.IsPending(ActionDelete, e.ID) {
			return next, nil
		}
		next.Pending = nil
		return next, []Effect{DeleteEntry{ID: e.ID}}

	case Cancel:
		next.Pending = nil
		return next, nil

	case SendChat:
		next.Page = PageChat
		return next, []Effect{ChatTurn{Text: e.Text}}

	case ResetChat:
		next.Page = PageChat
		return next, []Effect{ClearChat{}}
	}

	return next, nil
}
