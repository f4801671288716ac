package music

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// moodsFile is the YAML layout of a mood catalog override:
//
//	default_genre: pop
//	moods:
//	  - name: calm
//	    genre: ambient
//	    keywords: [calm, peaceful]
type moodsFile struct {
	DefaultGenre string      `yaml:"default_genre"`
	Moods        []moodEntry `yaml:"moods"`
}

type moodEntry struct {
	Name     string   `yaml:"name"`
	Genre    string   `yaml:"genre"`
	Keywords []string `yaml:"keywords"`
}

// LoadCatalog reads a mood catalog from a YAML file. The file order is the
// detection order.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to read moods file: %w", err)
	}

	var file moodsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Catalog{}, fmt.Errorf("failed to parse moods yaml: %w", err)
	}

	cat := Catalog{DefaultGenre: strings.TrimSpace(file.DefaultGenre)}
	if cat.DefaultGenre == "" {
		cat.DefaultGenre = DefaultGenre
	}
	for _, e := range file.Moods {
		m := Mood{
			Name:  strings.TrimSpace(e.Name),
			Genre: strings.TrimSpace(e.Genre),
		}
		for _, kw := range e.Keywords {
			if kw = strings.TrimSpace(kw); kw != "" {
				m.Keywords = append(m.Keywords, strings.ToLower(kw))
			}
		}
		cat.Moods = append(cat.Moods, m)
	}

	if err := cat.validate(); err != nil {
		return Catalog{}, fmt.Errorf("invalid moods file %s: %w", path, err)
	}
	return cat, nil
}
