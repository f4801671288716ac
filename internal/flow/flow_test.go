package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReduceNavigate(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   Page
		want Page
	}{
		{name: "to chat", from: Initial(), to: PageChat, want: PageChat},
		{name: "to journals", from: Initial(), to: PageViewJournals, want: PageViewJournals},
		{name: "unknown page keeps current", from: State{Page: PageSettings}, to: Page("nope"), want: PageSettings},
		{name: "invalid current page resets", from: State{Page: Page("bogus")}, to: Page("nope"), want: PageWelcome},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, effects := Reduce(tt.from, Navigate{Page: tt.to})
			assert.Equal(t, tt.want, got.Page)
			assert.Empty(t, effects)
			assert.Nil(t, got.Pending)
		})
	}
}

func TestReduceNavigateClearsPending(t *testing.T) {
	s, _ := Reduce(Initial(), RequestDelete{ID: "a"})
	assert.True(t, s.IsPending(ActionDelete, "a"))

	s, _ = Reduce(s, Navigate{Page: PageChat})
	assert.Nil(t, s.Pending)

	_, effects := Reduce(s, ConfirmDelete{ID: "a"})
	assert.Empty(t, effects, "confirm after navigating away must do nothing")
}

func TestReduceTwoStepDelete(t *testing.T) {
	s, effects := Reduce(Initial(), RequestDelete{ID: "e1"})
	assert.Empty(t, effects)
	assert.Equal(t, PageViewJournals, s.Page)

	// Confirm for another entry is ignored and keeps the pending request.
	s2, effects := Reduce(s, ConfirmDelete{ID: "e2"})
	assert.Empty(t, effects)
	assert.True(t, s2.IsPending(ActionDelete, "e1"))

	s3, effects := Reduce(s2, ConfirmDelete{ID: "e1"})
	assert.Equal(t, []Effect{DeleteEntry{ID: "e1"}}, effects)
	assert.Nil(t, s3.Pending)

	// A second confirm has nothing to match.
	_, effects = Reduce(s3, ConfirmDelete{ID: "e1"})
	assert.Empty(t, effects)
}

func TestReduceTwoStepModify(t *testing.T) {
	s, _ := Reduce(Initial(), RequestModify{ID: "e1"})

	// A delete confirmation does not satisfy a pending modify.
	_, effects := Reduce(s, ConfirmDelete{ID: "e1"})
	assert.Empty(t, effects)

	s, effects = Reduce(s, ConfirmModify{ID: "e1", Text: "better"})
	assert.Equal(t, []Effect{UpdateEntry{ID: "e1", Text: "better"}}, effects)
	assert.Nil(t, s.Pending)
}

func TestReduceCancel(t *testing.T) {
	s, _ := Reduce(Initial(), RequestModify{ID: "e1"})
	s, effects := Reduce(s, Cancel{})
	assert.Empty(t, effects)
	assert.Nil(t, s.Pending)
	assert.Equal(t, PageViewJournals, s.Page)
}

func TestReduceEffects(t *testing.T) {
	tests := []struct {
		name     string
		event    Event
		wantPage Page
		want     []Effect
	}{
		{name: "submit", event: SubmitEntry{Text: "hi"}, wantPage: PageAddJournal, want: []Effect{CreateEntry{Text: "hi"}}},
		{name: "chat", event: SendChat{Text: "hello"}, wantPage: PageChat, want: []Effect{ChatTurn{Text: "hello"}}},
		{name: "reset", event: ResetChat{}, wantPage: PageChat, want: []Effect{ClearChat{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, effects := Reduce(Initial(), tt.event)
			assert.Equal(t, tt.wantPage, got.Page)
			assert.Equal(t, tt.want, effects)
		})
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s, _ := Reduce(Initial(), RequestDelete{ID: "e1"})
	before := *s.Pending

	_, _ = Reduce(s, ConfirmDelete{ID: "e1"})
	_, _ = Reduce(s, RequestModify{ID: "e9"})

	assert.Equal(t, before, *s.Pending)
	assert.Equal(t, PageViewJournals, s.Page)
}

func TestParsePage(t *testing.T) {
	for _, p := range Pages() {
		got, ok := ParsePage(string(p))
		assert.True(t, ok)
		assert.Equal(t, p, got)
		assert.NotEmpty(t, p.Title())
	}
	_, ok := ParsePage("admin")
	assert.False(t, ok)
}
