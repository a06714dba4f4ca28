package language

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Catalog is the ordered set of languages of a site, sorted by Order then
// Slug.
type Catalog struct {
	languages []Language
	index     map[string]int
}

type catalogFile struct {
	Default   string     `yaml:"default"`
	Languages []Language `yaml:"languages"`
}

// NewCatalog validates languages and orders them. When none is flagged as
// default the first one in order becomes the default.
func NewCatalog(languages ...Language) (*Catalog, error) {
	normalized := make([]Language, 0, len(languages))
	seen := make(map[string]struct{}, len(languages))
	for _, l := range languages {
		n, err := l.normalize()
		if err != nil {
			return nil, err
		}
		if _, ok := seen[n.Slug]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSlug, n.Slug)
		}
		seen[n.Slug] = struct{}{}
		normalized = append(normalized, n)
	}

	slices.SortStableFunc(normalized, func(a, b Language) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.Slug, b.Slug)
	})

	hasDefault := false
	for i := range normalized {
		if normalized[i].IsDefault {
			if hasDefault {
				normalized[i].IsDefault = false
			}
			hasDefault = true
		}
	}
	if !hasDefault && len(normalized) > 0 {
		normalized[0].IsDefault = true
	}

	c := &Catalog{languages: normalized, index: make(map[string]int, len(normalized))}
	for i, l := range normalized {
		c.index[l.Slug] = i
	}
	return c, nil
}

// Parse reads a YAML catalog:
//
//	default: en
//	languages:
//	  - slug: en
//	    name: English
//	    locale: en_US
//	    active: true
func Parse(content []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, errors.Join(ErrFailedToParseYAML, err)
	}
	if file.Default != "" {
		for i := range file.Languages {
			file.Languages[i].IsDefault = file.Languages[i].Slug == file.Default
		}
	}
	return NewCatalog(file.Languages...)
}

// LoadFile reads and parses the YAML catalog at path.
func LoadFile(path string) (*Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrFailedToReadFile, err)
	}
	return Parse(content)
}

// Languages returns a copy of the ordered languages.
func (c *Catalog) Languages() []Language {
	if c == nil {
		return []Language{}
	}
	return slices.Clone(c.languages)
}

// Len reports the number of languages.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.languages)
}

// Get returns the language with slug.
func (c *Catalog) Get(slug string) (Language, bool) {
	if c == nil {
		return Language{}, false
	}
	i, ok := c.index[slug]
	if !ok {
		return Language{}, false
	}
	return c.languages[i], true
}

// Has reports whether slug names a language of the catalog.
func (c *Catalog) Has(slug string) bool {
	_, ok := c.Get(slug)
	return ok
}

// Slugs returns the slugs in catalog order.
func (c *Catalog) Slugs() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.languages))
	for i, l := range c.languages {
		out[i] = l.Slug
	}
	return out
}

// Default returns the default language.
func (c *Catalog) Default() (Language, bool) {
	if c == nil {
		return Language{}, false
	}
	for _, l := range c.languages {
		if l.IsDefault {
			return l, true
		}
	}
	return Language{}, false
}
