package opts

import (
	"maps"
	"slices"

	"github.com/invopop/jsonschema"
)

// ContextEdit is the default context an option schema applies to.
const ContextEdit = "edit"

// SchemaOption adjusts the base object BuildSchema merges partials over.
type SchemaOption func(*schemaBase)

type schemaBase struct {
	contexts []string
}

// WithContexts replaces the default ["edit"] contexts.
func WithContexts(contexts ...string) SchemaOption {
	return func(base *schemaBase) {
		if len(contexts) > 0 {
			base.contexts = slices.Clone(contexts)
		}
	}
}

// BuildSchema merges partial over the common option metadata: dialect,
// title, description and contexts. Fields set on partial win, except Title
// which is always key. partial must declare a type.
func BuildSchema(key, description string, partial *jsonschema.Schema, opts ...SchemaOption) *jsonschema.Schema {
	if partial == nil || partial.Type == "" {
		panic("opts: schema for option " + key + " must declare a type")
	}
	base := schemaBase{contexts: []string{ContextEdit}}
	for _, opt := range opts {
		if opt != nil {
			opt(&base)
		}
	}

	schema := *partial
	schema.Title = key
	if schema.Version == "" {
		schema.Version = jsonschema.Version
	}
	if schema.Description == "" {
		schema.Description = description
	}
	extras := map[string]any{"context": slices.Clone(base.contexts)}
	if len(partial.Extras) > 0 {
		maps.Copy(extras, partial.Extras)
	}
	schema.Extras = extras
	return &schema
}

// DefaultSchemaGenerator returns the built-in generator that publishes the
// collection as a single JSON Schema object.
func DefaultSchemaGenerator() SchemaGenerator {
	return objectGenerator{}
}

type objectGenerator struct{}

func (objectGenerator) Generate(options *Options) (SchemaDocument, error) {
	return SchemaDocument{
		Format:   SchemaFormatJSONSchema,
		Document: options.ObjectSchema(),
	}, nil
}
