package catalog

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// MaxIDLength bounds item identifiers so they fit in index keys and TAG fields.
const MaxIDLength = 128

// notAvailable is how the source club data marks missing links.
const notAvailable = "N/A"

// Embedded fields. Each becomes its own vector in the index.
const (
	FieldName        = "name"
	FieldDescription = "description"
)

// Links holds the public links of a catalog item. Empty means absent.
type Links struct {
	Website   string
	Link      string
	Facebook  string
	LinkedIn  string
	Instagram string
	YouTube   string
}

// Item is a recommendable catalog entry (a student club).
type Item struct {
	id          string
	name        string
	description string
	links       Links
}

// New validates and normalizes a catalog item.
func New(id, name, description string, links Links) (Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Item{}, errors.New("item name is required")
	}
	if id == "" {
		id = Slugify(name)
	}
	if err := ValidateID(id); err != nil {
		return Item{}, err
	}
	return Item{
		id:          id,
		name:        name,
		description: normalize(description),
		links: Links{
			Website:   normalize(links.Website),
			Link:      normalize(links.Link),
			Facebook:  normalize(links.Facebook),
			LinkedIn:  normalize(links.LinkedIn),
			Instagram: normalize(links.Instagram),
			YouTube:   normalize(links.YouTube),
		},
	}, nil
}

// ID returns the item identifier.
func (i *Item) ID() string { return i.id }

// Name returns the display name.
func (i *Item) Name() string { return i.name }

// Description returns the free-text description, possibly empty.
func (i *Item) Description() string { return i.description }

// Links returns the item's public links.
func (i *Item) Links() Links { return i.links }

// EmbeddingTexts returns the texts to vectorize keyed by field, skipping empty ones.
func (i *Item) EmbeddingTexts() map[string]string {
	texts := map[string]string{FieldName: i.name}
	if i.description != "" {
		texts[FieldDescription] = i.description
	}
	return texts
}

// ValidateID checks that id matches [a-z0-9_-]+ and fits MaxIDLength.
func ValidateID(id string) error {
	if id == "" {
		return errors.New("item id is required")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("item id exceeds %d characters", MaxIDLength)
	}
	for _, r := range id {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' && r != '_' {
			return fmt.Errorf("item id %q contains invalid character %q", id, r)
		}
	}
	return nil
}

// Slugify derives an identifier from a display name: "Robotics & AI Club" -> "robotics-ai-club".
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if len(s) > MaxIDLength {
		s = strings.TrimSuffix(s[:MaxIDLength], "-")
	}
	return s
}

func normalize(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, notAvailable) {
		return ""
	}
	return s
}
