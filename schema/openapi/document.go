package openapi

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	opts "github.com/goliatone/go-langopts"
)

// rootHint names inline components found under the request body.
const rootHint = "Settings"

type documentBuilder struct {
	config   generatorConfig
	registry *componentRegistry
	root     *schemaNode
}

func newDocumentBuilder(config generatorConfig, registry *componentRegistry, root *schemaNode) *documentBuilder {
	return &documentBuilder{config: config, registry: registry, root: root}
}

func (b *documentBuilder) build() (map[string]any, error) {
	if b.root == nil {
		return nil, fmt.Errorf("openapi: root schema node cannot be nil")
	}

	var body map[string]any
	if name := b.config.rootComponent; name != "" {
		body = map[string]any{"$ref": b.registry.forceReference(name, b.root)}
		b.registerDescendants(name, b.root)
	} else {
		body = b.schemaFor(b.root, rootHint)
	}

	schemas := b.registry.componentsMap()
	errorsSchema := optionErrorsSchema(b.root.Order)
	if name := b.config.errorsComponent; name != "" && b.usesErrorsBody() {
		if schemas == nil {
			schemas = map[string]any{}
		}
		schemas[name] = errorsSchema
		errorsSchema = map[string]any{"$ref": componentRef(name)}
	}

	document := map[string]any{
		"openapi": b.config.openAPIVersion,
		"info":    b.info(),
		"paths": map[string]any{
			b.config.operation.Path: map[string]any{
				b.method(): b.operation(body, errorsSchema),
			},
		},
	}
	if schemas != nil {
		document["components"] = map[string]any{"schemas": schemas}
	}
	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

func (b *documentBuilder) info() map[string]any {
	info := map[string]any{
		"title":   b.config.info.Title,
		"version": b.config.info.Version,
	}
	if b.config.info.Description != "" {
		info["description"] = b.config.info.Description
	}
	return info
}

func (b *documentBuilder) method() string {
	if method := strings.ToLower(b.config.operation.Method); method != "" {
		return method
	}
	return "post"
}

func (b *documentBuilder) operation(body, errorsSchema map[string]any) map[string]any {
	operationID := b.config.operation.OperationID
	if operationID == "" {
		operationID = fmt.Sprintf("%s:%s", b.method(), b.config.operation.Path)
	}

	responses := make(map[string]any, len(b.config.responses))
	for _, status := range slices.Sorted(maps.Keys(b.config.responses)) {
		resp := b.config.responses[status]
		payload := map[string]any{"description": resp.Description}
		if resp.Errors {
			payload["content"] = map[string]any{
				"application/json": map[string]any{"schema": errorsSchema},
			}
		}
		responses[status] = payload
	}

	operation := map[string]any{
		"operationId": operationID,
		"requestBody": map[string]any{
			"required": true,
			"content": map[string]any{
				b.config.contentType: map[string]any{"schema": body},
			},
		},
		"responses": responses,
	}
	if summary := strings.TrimSpace(b.config.operation.Summary); summary != "" {
		operation["summary"] = summary
	}
	return operation
}

func (b *documentBuilder) usesErrorsBody() bool {
	for _, resp := range b.config.responses {
		if resp.Errors {
			return true
		}
	}
	return false
}

// schemaFor renders node, replacing objects and arrays already seen with a
// component reference.
func (b *documentBuilder) schemaFor(node *schemaNode, nameHint string) map[string]any {
	if node == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	if node.Type == "object" || node.Type == "array" {
		if ref := b.registry.register(nameHint, node); ref != "" {
			return map[string]any{"$ref": ref}
		}
	}

	result := node.baseMap()
	if len(node.Properties) > 0 || node.Type == "object" {
		props := make(map[string]any, len(node.Properties))
		for _, key := range node.Order {
			props[key] = b.schemaFor(node.Properties[key], combineComponentName(nameHint, key))
		}
		result["properties"] = props
	}
	if node.Items != nil {
		result["items"] = b.schemaFor(node.Items, combineComponentName(nameHint, "item"))
	}
	if node.Additional != nil {
		result["additionalProperties"] = b.schemaFor(node.Additional, combineComponentName(nameHint, "value"))
	}
	return result
}

func (b *documentBuilder) registerDescendants(nameHint string, node *schemaNode) {
	for _, key := range node.Order {
		b.schemaFor(node.Properties[key], combineComponentName(nameHint, key))
	}
	if node.Items != nil {
		b.schemaFor(node.Items, combineComponentName(nameHint, "item"))
	}
	if node.Additional != nil {
		b.schemaFor(node.Additional, combineComponentName(nameHint, "value"))
	}
}

// optionErrorsSchema describes the errors of a rejected write, keyed by
// option key.
func optionErrorsSchema(keys []string) map[string]any {
	item := map[string]any{
		"type":     "object",
		"required": []string{"code", "message"},
		"properties": map[string]any{
			"code":    map[string]any{"type": "string"},
			"message": map[string]any{"type": "string"},
			"severity": map[string]any{
				"type": "string",
				"enum": []string{string(opts.SeverityBlocking), string(opts.SeverityWarning)},
			},
			"data": map[string]any{"type": "object", "additionalProperties": true},
		},
	}
	schema := map[string]any{
		"type":                 "object",
		"additionalProperties": map[string]any{"type": "array", "items": item},
	}
	if len(keys) > 0 {
		schema["x-option-keys"] = slices.Clone(keys)
	}
	return schema
}

func validateDocument(document map[string]any) error {
	if document == nil {
		return fmt.Errorf("openapi: document cannot be nil")
	}
	if version, _ := document["openapi"].(string); version == "" {
		return fmt.Errorf("openapi: document missing version string")
	}
	info, _ := document["info"].(map[string]any)
	if info == nil {
		return fmt.Errorf("openapi: document missing info section")
	}
	for _, field := range []string{"title", "version"} {
		if value, _ := info[field].(string); value == "" {
			return fmt.Errorf("openapi: info.%s must be set", field)
		}
	}
	paths, _ := document["paths"].(map[string]any)
	if len(paths) == 0 {
		return fmt.Errorf("openapi: document must define at least one path")
	}
	for path, value := range paths {
		item, _ := value.(map[string]any)
		if len(item) == 0 {
			return fmt.Errorf("openapi: path %q missing operations", path)
		}
		for method, operation := range item {
			if err := validateOperation(operation); err != nil {
				return fmt.Errorf("openapi: operation %s %s %w", method, path, err)
			}
		}
	}
	return nil
}

func validateOperation(value any) error {
	operation, _ := value.(map[string]any)
	if operation == nil {
		return fmt.Errorf("invalid payload")
	}
	if _, ok := operation["operationId"].(string); !ok {
		return fmt.Errorf("missing operationId")
	}
	body, _ := operation["requestBody"].(map[string]any)
	if body == nil {
		return fmt.Errorf("missing requestBody")
	}
	if content, _ := body["content"].(map[string]any); len(content) == 0 {
		return fmt.Errorf("requestBody missing content")
	}
	if _, ok := operation["responses"].(map[string]any); !ok {
		return fmt.Errorf("missing responses")
	}
	return nil
}
