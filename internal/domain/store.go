package domain

import "context"

// EntryStore is durable keyed storage for journal entries.
//
// Implementations return errors matching ErrStorage when the backend cannot
// be reached and ErrNotFound when Update or Delete target a missing id.
// Deleting an absent entry is reported as ErrNotFound by every backend.
type EntryStore interface {
	// Create appends a new entry stamped with the current time.
	Create(ctx context.Context, text string) (Entry, error)
	// List returns a snapshot of all entries, newest first.
	List(ctx context.Context) ([]Entry, error)
	// Update replaces the text of an entry. CreatedAt is left untouched.
	Update(ctx context.Context, id, text string) error
	// Delete removes an entry.
	Delete(ctx context.Context, id string) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}
