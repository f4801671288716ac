// Package storetest holds the behaviour every domain.EntryStore backend must
// share. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/mindhaven/internal/domain"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) domain.EntryStore

// Run executes the shared entry store suite against the backend built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("empty list", func(t *testing.T) {
		s := newStore(t)
		entries, err := s.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("create persists exact text", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		text := "Had a rough day at work.\n  Second line stays as typed.  "
		created, err := s.Create(ctx, text)
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.False(t, created.CreatedAt.IsZero())

		entries, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, created.ID, entries[0].ID)
		assert.Equal(t, text, entries[0].Text)
		assert.True(t, created.CreatedAt.Equal(entries[0].CreatedAt))
	})

	t.Run("list is newest first", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, text := range []string{"one", "two", "three", "four"} {
			_, err := s.Create(ctx, text)
			require.NoError(t, err)
			time.Sleep(2 * time.Millisecond)
		}

		entries, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 4)
		for i := 1; i < len(entries); i++ {
			assert.False(t, entries[i].CreatedAt.After(entries[i-1].CreatedAt),
				"entry %d (%s) is newer than entry %d (%s)", i, entries[i].Date(), i-1, entries[i-1].Date())
		}
		assert.Equal(t, "four", entries[0].Text)
		assert.Equal(t, "one", entries[3].Text)
	})

	t.Run("update changes only the target text", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a, err := s.Create(ctx, "first")
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
		b, err := s.Create(ctx, "second")
		require.NoError(t, err)

		before, err := s.List(ctx)
		require.NoError(t, err)

		require.NoError(t, s.Update(ctx, a.ID, "first, revised"))

		after, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, after, 2)

		byID := map[string]domain.Entry{}
		for _, e := range after {
			byID[e.ID] = e
		}
		assert.Equal(t, "first, revised", byID[a.ID].Text)
		assert.True(t, a.CreatedAt.Equal(byID[a.ID].CreatedAt), "createdAt must not change on update")

		for _, e := range before {
			if e.ID == b.ID {
				assert.Equal(t, e, byID[b.ID])
			}
		}
	})

	t.Run("update missing entry", func(t *testing.T) {
		s := newStore(t)
		err := s.Update(context.Background(), "does-not-exist", "text")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delete removes exactly one entry", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		keep, err := s.Create(ctx, "keep me")
		require.NoError(t, err)
		drop, err := s.Create(ctx, "drop me")
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, drop.ID))

		entries, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, keep.ID, entries[0].ID)

		assert.ErrorIs(t, s.Delete(ctx, drop.ID), domain.ErrNotFound)
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(context.Background()))
	})
}
