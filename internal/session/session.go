// Package session holds the per-browser state of the web UI: the current
// page, any pending confirmation and the chat transcript.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/mindhaven/internal/chat"
	"github.com/MrSnakeDoc/mindhaven/internal/flow"
)

var ErrNotFound = errors.New("session not found")

type FlashKind string

const (
	FlashInfo    FlashKind = "info"
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
)

// Flash is a one-shot message shown on the next page render.
type Flash struct {
	Kind FlashKind `json:"kind"`
	Text string    `json:"text"`
}

type Session struct {
	ID         string          `json:"id"`
	UI         flow.State      `json:"ui"`
	Transcript chat.Transcript `json:"transcript"`
	Flash      *Flash          `json:"flash,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// New starts a session on the welcome page with an empty conversation.
func New() Session {
	return Session{
		ID:        uuid.NewString(),
		UI:        flow.Initial(),
		UpdatedAt: time.Now().UTC(),
	}
}

// Resume rebuilds an expired session from its logged conversation. The id is
// kept so the browser cookie stays valid.
func Resume(id string, t chat.Transcript) Session {
	return Session{
		ID:         id,
		UI:         flow.State{Page: flow.PageChat},
		Transcript: t,
		UpdatedAt:  time.Now().UTC(),
	}
}

// ValidID reports whether id looks like an id issued by New.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Store persists sessions. Save refreshes the expiry.
type Store interface {
	Load(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, s Session) error
}

// MemoryStore keeps sessions in process memory with a sliding TTL.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]memoryItem
	now      func() time.Time
}

type memoryItem struct {
	s       Session
	expires time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]memoryItem),
		now:      time.Now,
	}
}

func (m *MemoryStore) Load(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if m.ttl > 0 && m.now().After(item.expires) {
		delete(m.sessions, id)
		return Session{}, ErrNotFound
	}
	return item.s, nil
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.UpdatedAt = m.now().UTC()
	m.sessions[s.ID] = memoryItem{s: s, expires: m.now().Add(m.ttl)}
	return nil
}

// Purge drops expired sessions and returns how many were removed.
func (m *MemoryStore) Purge() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ttl <= 0 {
		return 0
	}
	now := m.now()
	n := 0
	for id, item := range m.sessions {
		if now.After(item.expires) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}
