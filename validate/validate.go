// Package validate checks and coerces loosely typed values against JSON
// schema documents. Schemas are compiled into goskema schemas: Validate
// reports every violation as goskema issues, Sanitize parses an accepted
// value into its canonical Go form (bool, string, int, float64, []any,
// map[string]any).
package validate

import (
	"context"

	"github.com/invopop/jsonschema"
	"github.com/reoring/goskema"
)

// CodeInvalidSchema marks a schema the compiler cannot enforce. The other
// codes are goskema's.
const CodeInvalidSchema = "invalid_schema"

// Validate reports every violation of value against schema. A nil schema
// accepts anything.
func Validate(value any, schema *jsonschema.Schema) goskema.Issues {
	issues, _ := goskema.AsIssues(Compile(schema).Validate(context.Background(), value))
	return issues
}

// Sanitize parses value into the canonical form described by schema. Values
// that cannot be parsed are reported and returned unchanged.
func Sanitize(value any, schema *jsonschema.Schema) (any, goskema.Issues) {
	out, err := goskema.Decode(context.Background(), Compile(schema), value)
	if issues, ok := goskema.AsIssues(err); ok {
		return value, issues
	}
	return out, nil
}

// Codes returns the issue codes in order.
func Codes(issues goskema.Issues) []string {
	if len(issues) == 0 {
		return nil
	}
	codes := make([]string, len(issues))
	for i, issue := range issues {
		codes[i] = issue.Code
	}
	return codes
}
