// Package proxy narrows entity lists through a stack of named filters.
//
// A Chain is an immutable list of filter names. Each call to Filter returns a
// new chain, so a base chain can be shared and extended per request:
//
//	base := proxy.NewChain[language.Language](source, filters)
//	visible := base.Filter("active").Filter("hide_empty")
//	list := visible.GetList(proxy.Args{"fields": "slug"})
//
// Entities are fetched from the Source, run through Apply and shaped by
// Source.Convert. Names the registry does not know are skipped.
package proxy

import (
	"maps"
	"slices"
)

// Args carries list arguments. Shape selectors (see Selectors) only reach
// Source.Convert; everything else also reaches Source.List.
type Args map[string]any

// ArgFields selects which fields Convert should project.
const ArgFields = "fields"

// Selectors lists the argument keys stripped before Source.List.
var Selectors = []string{ArgFields}

// Source supplies the base list and shapes the filtered result.
type Source[E any] interface {
	List(args Args) []E
	Convert(entities []E, args Args) any
}

// Chain is an ordered, immutable stack of filter names bound to a source.
type Chain[E any] struct {
	source   Source[E]
	registry *Registry[E]
	stack    []string
}

// NewChain returns an empty chain over source. A nil registry makes every
// filter a no-op.
func NewChain[E any](source Source[E], registry *Registry[E]) *Chain[E] {
	return &Chain[E]{source: source, registry: registry}
}

// Filter returns a copy of c with name appended to the stack.
func (c *Chain[E]) Filter(name string) *Chain[E] {
	return &Chain[E]{
		source:   c.source,
		registry: c.registry,
		stack:    slices.Concat(c.stack, []string{name}),
	}
}

// Stack returns the filter names in application order.
func (c *Chain[E]) Stack() []string {
	return slices.Clone(c.stack)
}

// Entities fetches the base list and applies the stack.
func (c *Chain[E]) Entities(args Args) []E {
	if c.source == nil {
		return []E{}
	}
	return Apply(c.source.List(listArgs(args)), c.stack, c.registry)
}

// GetList returns Entities shaped by Source.Convert.
func (c *Chain[E]) GetList(args Args) any {
	if c.source == nil {
		return nil
	}
	return c.source.Convert(c.Entities(args), args)
}

// Apply runs the named filters over entities in order and returns a fresh,
// densely indexed slice. The input slice is never modified.
func Apply[E any](entities []E, names []string, registry *Registry[E]) []E {
	current := slices.Clone(entities)
	for _, name := range names {
		filter, ok := registry.Lookup(name)
		if !ok {
			continue
		}
		current = filter(current)
	}
	out := make([]E, len(current))
	copy(out, current)
	return out
}

func listArgs(args Args) Args {
	if len(args) == 0 {
		return Args{}
	}
	out := maps.Clone(args)
	for _, key := range Selectors {
		delete(out, key)
	}
	return out
}

// Where builds a filter that keeps entities matching keep.
func Where[E any](keep func(E) bool) Filter[E] {
	return func(entities []E) []E {
		out := make([]E, 0, len(entities))
		for _, entity := range entities {
			if keep(entity) {
				out = append(out, entity)
			}
		}
		return out
	}
}
