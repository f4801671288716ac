// Package music turns free text into a mood and a mood into one song.
package music

import "fmt"

// Track is a single song from the catalog.
type Track struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
	URL    string `json:"url"`
}

// Markdown renders the track as a markdown link, "[name by artist](url)".
func (t Track) Markdown() string {
	return fmt.Sprintf("[%s by %s](%s)", t.Name, t.Artist, t.URL)
}
