package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/mindhaven/internal/domain"
)

// EntryStore keeps journal entries in process memory.
// Used by the "memory" backend and by tests; nothing survives a restart.
type EntryStore struct {
	mu      sync.RWMutex
	entries map[string]domain.Entry // ID -> Entry
	now     func() time.Time
}

var _ domain.EntryStore = (*EntryStore)(nil)

// NewEntryStore creates an empty store. now defaults to time.Now.
func NewEntryStore(now func() time.Time) *EntryStore {
	if now == nil {
		now = time.Now
	}
	return &EntryStore{
		entries: make(map[string]domain.Entry),
		now:     now,
	}
}

// Create stores a new entry
func (s *EntryStore) Create(_ context.Context, text string) (domain.Entry, error) {
	// Truncate to the persisted precision so reads match what other backends return.
	created, err := domain.ParseDate(domain.FormatDate(s.now()))
	if err != nil {
		return domain.Entry{}, domain.NewStorageError("create", err)
	}

	e := domain.Entry{
		ID:        uuid.NewString(),
		CreatedAt: created,
		Text:      text,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[e.ID] = e
	return e, nil
}

// List returns all entries, newest first. Ties are broken by ID, descending.
func (s *EntryStore) List(_ context.Context) ([]domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID > entries[j].ID
	})
	return entries, nil
}

// Update replaces the text of an existing entry
func (s *EntryStore) Update(_ context.Context, id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return domain.NotFound(id)
	}
	e.Text = text
	s.entries[id] = e
	return nil
}

// Delete removes an entry
func (s *EntryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return domain.NotFound(id)
	}
	delete(s.entries, id)
	return nil
}

func (s *EntryStore) Ping(context.Context) error { return nil }

// Count returns the number of stored entries
func (s *EntryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}
