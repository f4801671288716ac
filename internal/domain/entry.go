package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the persisted form of Entry.CreatedAt. It is fixed width and
// always UTC so that lexical order on the stored string equals time order.
const DateLayout = "2006-01-02T15:04:05.000000Z07:00"

// DayLayout is the calendar bucket used when grouping entries for display.
const DayLayout = "2006-01-02"

// legacyLayouts are accepted when reading documents written by older clients
// (naive local ISO-8601 timestamps without a zone).
var legacyLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// Entry is a single journal entry.
//
// ID and CreatedAt are assigned by the store and never change. Text is the
// only field a user may edit.
type Entry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Text      string    `json:"text"`
}

// Date returns the persisted representation of CreatedAt.
func (e Entry) Date() string {
	return FormatDate(e.CreatedAt)
}

// Day returns the calendar day of the entry in loc, UTC when loc is nil.
func (e Entry) Day(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return e.CreatedAt.In(loc).Format(DayLayout)
}

func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate parses a stored date, falling back to legacy layouts.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range legacyLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized entry date %q", s)
}

// ValidateText rejects blank or whitespace-only entry text. The text itself
// is stored verbatim.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: entry cannot be empty", ErrValidation)
	}
	return nil
}

// Annotated pairs an entry with its derived supportive comment.
type Annotated struct {
	Entry
	Comment string `json:"comment,omitempty"`
}

// DayGroup is one calendar day of entries as shown on the journal page.
type DayGroup struct {
	Day     string      `json:"day"`
	Entries []Annotated `json:"entries"`
}

// GroupByDay buckets entries by calendar day in loc. Groups appear in the
// order their first entry appears in the input, so a newest-first input yields
// newest-first days; order inside a day is preserved.
func GroupByDay(entries []Annotated, loc *time.Location) []DayGroup {
	groups := make([]DayGroup, 0)
	index := make(map[string]int)

	for _, e := range entries {
		day := e.Day(loc)
		i, ok := index[day]
		if !ok {
			i = len(groups)
			index[day] = i
			groups = append(groups, DayGroup{Day: day})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}

	return groups
}
