package catalog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	domcat "github.com/kailas-cloud/clubrec/internal/domain/catalog"
)

// fileItem is one club record in an ingest file.
type fileItem struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Website     string `yaml:"website"`
	Link        string `yaml:"link"`
	Facebook    string `yaml:"facebook"`
	LinkedIn    string `yaml:"linkedin"`
	Instagram   string `yaml:"instagram"`
	YouTube     string `yaml:"youtube"`
}

type fileDoc struct {
	Clubs []fileItem `yaml:"clubs"`
}

// LoadFile reads items from a YAML file with a top-level "clubs" list.
func LoadFile(path string) ([]domcat.Item, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only

	items, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

// Decode parses and validates ingest YAML. IDs default to a slug of the name
// and must be unique within the file.
func Decode(r io.Reader) ([]domcat.Item, error) {
	var doc fileDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	items := make([]domcat.Item, 0, len(doc.Clubs))
	seen := make(map[string]int, len(doc.Clubs))
	for i, c := range doc.Clubs {
		item, err := domcat.New(c.ID, c.Name, c.Description, domcat.Links{
			Website:   c.Website,
			Link:      c.Link,
			Facebook:  c.Facebook,
			LinkedIn:  c.LinkedIn,
			Instagram: c.Instagram,
			YouTube:   c.YouTube,
		})
		if err != nil {
			return nil, fmt.Errorf("clubs[%d]: %w", i, err)
		}
		if prev, dup := seen[item.ID()]; dup {
			return nil, fmt.Errorf("clubs[%d]: duplicate id %q (first at clubs[%d])", i, item.ID(), prev)
		}
		seen[item.ID()] = i
		items = append(items, item)
	}
	return items, nil
}
