package openapi

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"

	"github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
)

// schemaNode is the OpenAPI 3.0 projection of a JSON Schema. Only the
// keywords options declare are carried over.
type schemaNode struct {
	Type        string
	Format      string
	Title       string
	Description string
	Pattern     string
	Enum        []any
	Default     any
	Minimum     *float64
	Maximum     *float64
	MinLength   *uint64
	MaxLength   *uint64
	Required    []string
	// Order keeps property declaration order; Properties is keyed by name.
	Order      []string
	Properties map[string]*schemaNode
	Items      *schemaNode
	// Additional is nil when unset; closed reports additionalProperties: false.
	Additional *schemaNode
	Closed     bool
	Contexts   []string
}

func newObjectNode() *schemaNode {
	return &schemaNode{
		Type:       "object",
		Properties: map[string]*schemaNode{},
	}
}

// nodeFromSchema converts a jsonschema document into a node. $schema and
// other draft 2020-12 only keywords are dropped since OpenAPI 3.0 rejects
// them.
func nodeFromSchema(schema *jsonschema.Schema) *schemaNode {
	if schema == nil || schema == jsonschema.TrueSchema {
		return &schemaNode{}
	}
	node := &schemaNode{
		Type:        schema.Type,
		Format:      schema.Format,
		Title:       schema.Title,
		Description: schema.Description,
		Pattern:     schema.Pattern,
		Enum:        slices.Clone(schema.Enum),
		Default:     schema.Default,
		MinLength:   schema.MinLength,
		MaxLength:   schema.MaxLength,
		Required:    slices.Clone(schema.Required),
	}
	if value, err := schema.Minimum.Float64(); err == nil && schema.Minimum != "" {
		node.Minimum = &value
	}
	if value, err := schema.Maximum.Float64(); err == nil && schema.Maximum != "" {
		node.Maximum = &value
	}
	if schema.Properties != nil {
		node.Properties = make(map[string]*schemaNode, schema.Properties.Len())
		for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
			node.Order = append(node.Order, pair.Key)
			node.Properties[pair.Key] = nodeFromSchema(pair.Value)
		}
	}
	if schema.Items != nil {
		node.Items = nodeFromSchema(schema.Items)
	}
	switch schema.AdditionalProperties {
	case nil, jsonschema.TrueSchema:
	case jsonschema.FalseSchema:
		node.Closed = true
	default:
		node.Additional = nodeFromSchema(schema.AdditionalProperties)
	}
	if contexts, ok := schema.Extras["context"].([]string); ok {
		node.Contexts = slices.Clone(contexts)
	}
	return node
}

func (n *schemaNode) hasContext(context string) bool {
	if context == "" || len(n.Contexts) == 0 {
		return true
	}
	return slices.Contains(n.Contexts, context)
}

func (n *schemaNode) baseMap() map[string]any {
	result := map[string]any{}
	if n.Type != "" {
		result["type"] = n.Type
	}
	if n.Format != "" {
		result["format"] = n.Format
	}
	if n.Title != "" {
		result["title"] = n.Title
	}
	if n.Description != "" {
		result["description"] = n.Description
	}
	if n.Default != nil {
		result["default"] = n.Default
	}
	if len(n.Enum) > 0 {
		result["enum"] = n.Enum
	}
	if n.Minimum != nil {
		result["minimum"] = *n.Minimum
	}
	if n.Maximum != nil {
		result["maximum"] = *n.Maximum
	}
	if n.MinLength != nil {
		result["minLength"] = *n.MinLength
	}
	if n.MaxLength != nil {
		result["maxLength"] = *n.MaxLength
	}
	if n.Pattern != "" {
		result["pattern"] = n.Pattern
	}
	if len(n.Required) > 0 {
		required := slices.Clone(n.Required)
		slices.Sort(required)
		result["required"] = required
	}
	if n.Closed {
		result["additionalProperties"] = false
	}
	if len(n.Contexts) > 0 {
		result["x-context"] = slices.Clone(n.Contexts)
	}
	return result
}

// inlineOpenAPI renders the node without component references.
func (n *schemaNode) inlineOpenAPI() map[string]any {
	result := n.baseMap()
	if len(n.Properties) > 0 || n.Type == "object" {
		props := make(map[string]any, len(n.Properties))
		for _, name := range n.Order {
			props[name] = n.Properties[name].inlineOpenAPI()
		}
		result["properties"] = props
	}
	if n.Items != nil {
		result["items"] = n.Items.inlineOpenAPI()
	}
	if n.Additional != nil {
		result["additionalProperties"] = n.Additional.inlineOpenAPI()
	}
	return result
}

// Digest identifies structurally equal nodes so they can share a component.
func (n *schemaNode) Digest() string {
	data, err := json.Marshal(n.inlineOpenAPI())
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
