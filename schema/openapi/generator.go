package openapi

import (
	opts "github.com/goliatone/go-langopts"
)

type generator struct {
	config generatorConfig
}

// NewGenerator constructs a schema generator that publishes the collection as
// the request body of a settings endpoint.
func NewGenerator(options ...GeneratorOption) opts.SchemaGenerator {
	cfg := defaultGeneratorConfig()
	for _, option := range options {
		if option != nil {
			option(&cfg)
		}
	}
	return generator{config: cfg}
}

// Option wires the OpenAPI generator into an options collection.
func Option(options ...GeneratorOption) opts.ConfigOption {
	return opts.WithSchemaGenerator(NewGenerator(options...))
}

// Generate builds the document. A nil collection yields an empty object body.
func (g generator) Generate(options *opts.Options) (opts.SchemaDocument, error) {
	root := newObjectNode()
	if options != nil {
		root = nodeFromSchema(options.ObjectSchema())
		filterContext(root, g.config.context)
	}
	builder := newDocumentBuilder(g.config, newComponentRegistry(), root)
	document, err := builder.build()
	if err != nil {
		return opts.SchemaDocument{}, err
	}
	return opts.SchemaDocument{
		Format:   opts.SchemaFormatOpenAPI,
		Document: document,
	}, nil
}

func filterContext(root *schemaNode, context string) {
	if context == "" {
		return
	}
	order := root.Order[:0]
	for _, key := range root.Order {
		if root.Properties[key].hasContext(context) {
			order = append(order, key)
			continue
		}
		delete(root.Properties, key)
	}
	root.Order = order
}
