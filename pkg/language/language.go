package language

import (
	"errors"
	"fmt"
	"strings"

	textlang "golang.org/x/text/language"
)

var (
	ErrSlugRequired      = errors.New("language slug is required")
	ErrInvalidSlug       = errors.New("language slug must match [a-z0-9_-]")
	ErrInvalidLocale     = errors.New("language locale is not a valid BCP 47 tag")
	ErrDuplicateSlug     = errors.New("language slug is declared twice")
	ErrFailedToParseYAML = errors.New("failed to parse language catalog")
	ErrFailedToReadFile  = errors.New("failed to read language catalog")
)

// Language is one content language of a site.
type Language struct {
	Slug      string `yaml:"slug" json:"slug"`
	Name      string `yaml:"name" json:"name"`
	Locale    string `yaml:"locale" json:"locale"`
	W3C       string `yaml:"w3c,omitempty" json:"w3c"`
	TermID    int    `yaml:"term_id,omitempty" json:"term_id"`
	Order     int    `yaml:"order,omitempty" json:"order"`
	Active    bool   `yaml:"active" json:"active"`
	IsRTL     bool   `yaml:"is_rtl,omitempty" json:"is_rtl"`
	IsDefault bool   `yaml:"is_default,omitempty" json:"is_default"`
	Flag      string `yaml:"flag,omitempty" json:"flag"`
	Count     int    `yaml:"count,omitempty" json:"count"`
}

// rtlScripts lists the ISO 15924 scripts written right to left.
var rtlScripts = map[string]bool{
	"Arab": true,
	"Hebr": true,
	"Syrc": true,
	"Thaa": true,
	"Nkoo": true,
	"Adlm": true,
	"Mand": true,
	"Samr": true,
}

// ParseLocale parses a locale written either as a BCP 47 tag ("pt-BR") or
// with an underscore separator ("pt_BR").
func ParseLocale(locale string) (textlang.Tag, error) {
	if locale == "" {
		return textlang.Und, fmt.Errorf("%w: empty locale", ErrInvalidLocale)
	}
	tag, err := textlang.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return textlang.Und, fmt.Errorf("%w: %q: %v", ErrInvalidLocale, locale, err)
	}
	return tag, nil
}

// IsRTLTag reports whether the most likely script of tag is right to left.
func IsRTLTag(tag textlang.Tag) bool {
	script, confidence := tag.Script()
	if confidence == textlang.No {
		return false
	}
	return rtlScripts[script.String()]
}

// normalize validates l and fills the fields derived from its locale.
func (l Language) normalize() (Language, error) {
	if l.Slug == "" {
		return l, ErrSlugRequired
	}
	if !validSlug(l.Slug) {
		return l, fmt.Errorf("%w: %q", ErrInvalidSlug, l.Slug)
	}
	if l.Locale == "" {
		l.Locale = l.Slug
	}
	tag, err := ParseLocale(l.Locale)
	if err != nil {
		return l, fmt.Errorf("language %q: %w", l.Slug, err)
	}
	if l.W3C == "" {
		l.W3C = tag.String()
	}
	if l.Name == "" {
		l.Name = l.Slug
	}
	if IsRTLTag(tag) {
		l.IsRTL = true
	}
	return l, nil
}

// Field returns the named field, using its json name.
func (l Language) Field(name string) (any, bool) {
	switch name {
	case "slug":
		return l.Slug, true
	case "name":
		return l.Name, true
	case "locale":
		return l.Locale, true
	case "w3c":
		return l.W3C, true
	case "term_id":
		return l.TermID, true
	case "order":
		return l.Order, true
	case "active":
		return l.Active, true
	case "is_rtl":
		return l.IsRTL, true
	case "is_default":
		return l.IsDefault, true
	case "flag":
		return l.Flag, true
	case "count":
		return l.Count, true
	default:
		return nil, false
	}
}

// Map exposes every field keyed by its json name.
func (l Language) Map() map[string]any {
	return map[string]any{
		"slug":       l.Slug,
		"name":       l.Name,
		"locale":     l.Locale,
		"w3c":        l.W3C,
		"term_id":    l.TermID,
		"order":      l.Order,
		"active":     l.Active,
		"is_rtl":     l.IsRTL,
		"is_default": l.IsDefault,
		"flag":       l.Flag,
		"count":      l.Count,
	}
}

func validSlug(slug string) bool {
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
