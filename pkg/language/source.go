package language

import (
	"github.com/goliatone/go-langopts/proxy"
)

// ArgHideEmpty asks Source.List to drop languages without content.
const ArgHideEmpty = "hide_empty"

// Source serves a catalog to proxy chains.
type Source struct {
	Catalog *Catalog
}

var _ proxy.Source[Language] = Source{}

// List returns the catalog languages in order.
func (s Source) List(args proxy.Args) []Language {
	languages := s.Catalog.Languages()
	if hide, _ := args[ArgHideEmpty].(bool); hide {
		return HideEmpty(languages)
	}
	return languages
}

// Convert projects languages onto the field named by args["fields"]. Without
// a field selector the languages are returned as is; an unknown field yields
// an empty list.
func (s Source) Convert(languages []Language, args proxy.Args) any {
	field, _ := args[proxy.ArgFields].(string)
	if field == "" {
		return languages
	}
	out := make([]any, 0, len(languages))
	for _, l := range languages {
		value, ok := l.Field(field)
		if !ok {
			return []any{}
		}
		out = append(out, value)
	}
	return out
}

// NewChain returns an empty chain over catalog using filters.
func NewChain(catalog *Catalog, filters *proxy.Registry[Language]) *proxy.Chain[Language] {
	return proxy.NewChain[Language](Source{Catalog: catalog}, filters)
}
