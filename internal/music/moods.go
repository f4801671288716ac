package music

import (
	"fmt"
	"strings"
)

// DefaultGenre is used when a mood has no genre of its own.
const DefaultGenre = "pop"

// Mood is a named set of trigger keywords and the genre it maps to.
type Mood struct {
	Name     string
	Keywords []string
	Genre    string
}

// Catalog is an ordered mood list. Detection is first match wins, so order
// matters when a text hits keywords of several moods.
type Catalog struct {
	Moods        []Mood
	DefaultGenre string
}

// DefaultCatalog returns the built-in mood list.
func DefaultCatalog() Catalog {
	return Catalog{
		Moods: []Mood{
			{Name: "happy", Keywords: []string{"happy", "joy", "excited", "love"}, Genre: "happy"},
			{Name: "sad", Keywords: []string{"sad", "down", "depressed", "cry"}, Genre: "sad"},
			{Name: "energetic", Keywords: []string{"energetic", "motivated", "active", "power"}, Genre: "workout"},
		},
		DefaultGenre: DefaultGenre,
	}
}

// Detect returns the first mood with a keyword contained in text,
// case-insensitively.
func (c Catalog) Detect(text string) (Mood, bool) {
	lower := strings.ToLower(text)
	for _, m := range c.Moods {
		for _, kw := range m.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return m, true
			}
		}
	}
	return Mood{}, false
}

// GenreFor maps a mood name to its catalog genre.
func (c Catalog) GenreFor(mood string) string {
	for _, m := range c.Moods {
		if m.Name == mood && m.Genre != "" {
			return m.Genre
		}
	}
	if c.DefaultGenre != "" {
		return c.DefaultGenre
	}
	return DefaultGenre
}

func (c Catalog) validate() error {
	if len(c.Moods) == 0 {
		return fmt.Errorf("mood catalog is empty")
	}
	seen := make(map[string]struct{}, len(c.Moods))
	for i, m := range c.Moods {
		if m.Name == "" {
			return fmt.Errorf("mood #%d has no name", i+1)
		}
		if _, dup := seen[m.Name]; dup {
			return fmt.Errorf("mood %q declared twice", m.Name)
		}
		seen[m.Name] = struct{}{}
		if len(m.Keywords) == 0 {
			return fmt.Errorf("mood %q has no keywords", m.Name)
		}
	}
	return nil
}
