package opts

import (
	"fmt"
	"maps"

	"github.com/goliatone/go-langopts/validate"
	"github.com/invopop/jsonschema"
	"github.com/reoring/goskema"
)

// CodeDuplicateItems flags list input that was deduplicated before commit.
const CodeDuplicateItems = "duplicate_items"

// BooleanDefinition declares a boolean option defaulting to false.
func BooleanDefinition(key, description string) Definition {
	return Definition{
		Key:         key,
		Description: description,
		Default:     false,
		Schema: func() *jsonschema.Schema {
			return &jsonschema.Schema{Type: "boolean"}
		},
	}
}

// StringDefinition declares a string option defaulting to "".
func StringDefinition(key, description string) Definition {
	return Definition{
		Key:         key,
		Description: description,
		Default:     "",
		Schema: func() *jsonschema.Schema {
			return &jsonschema.Schema{Type: "string"}
		},
	}
}

// IntegerDefinition declares an integer option defaulting to 0.
func IntegerDefinition(key, description string) Definition {
	return Definition{
		Key:         key,
		Description: description,
		Default:     0,
		Schema: func() *jsonschema.Schema {
			return &jsonschema.Schema{Type: "integer"}
		},
	}
}

// ListDefinition declares an array option with set semantics. items defaults
// to a string schema.
func ListDefinition(key, description string, items *jsonschema.Schema) Definition {
	if items == nil {
		items = &jsonschema.Schema{Type: "string"}
	}
	return Definition{
		Key:         key,
		Description: description,
		Default:     []any{},
		Schema: func() *jsonschema.Schema {
			return &jsonschema.Schema{Type: "array", Items: items}
		},
		Prepare: PrepareList,
	}
}

// MapDefinition declares an object option. partial contributes the inner
// structure; nil yields an open object.
func MapDefinition(key, description string, partial func() *jsonschema.Schema) Definition {
	if partial == nil {
		partial = func() *jsonschema.Schema {
			return &jsonschema.Schema{Type: "object"}
		}
	}
	return Definition{
		Key:         key,
		Description: description,
		Default:     map[string]any{},
		Schema:      partial,
	}
}

// Unique returns items without duplicates, keeping the first occurrence of
// each value and the relative order of survivors.
func Unique(items []any) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		seen := false
		for _, kept := range out {
			if validate.Equal(kept, item) {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, item)
		}
	}
	return out
}

// PrepareList deduplicates array-like input. Anything else passes through for
// the validator to reject.
func PrepareList(value any, report *Report) any {
	items, ok := validate.AsSlice(value)
	if !ok {
		return value
	}
	unique := Unique(items)
	if dropped := len(items) - len(unique); dropped > 0 && report != nil {
		report.Warn(
			NamespacedCode(CodeDuplicateItems, report.Key()),
			fmt.Sprintf("Removed %d duplicate item(s).", dropped),
			map[string]any{"dropped": dropped},
		)
	}
	return unique
}

// Mergeable is implemented by map options supporting partial mutation.
type Mergeable interface {
	Option
	Add(item any, deps Reader) bool
	Remove(key string) bool
	ResetValue(key string) any
}

// MapOption is an object option whose keys survive removal.
type MapOption struct {
	*Base
	resetValue func(key string) any
}

// NewMap builds a map option. resetValue defines what an erased key holds.
func NewMap(def Definition, resetValue func(key string) any, raw any, deps Reader) *MapOption {
	if resetValue == nil {
		panic(fmt.Sprintf("opts: map option %q has no reset value", def.Key))
	}
	if def.Default == nil {
		def.Default = map[string]any{}
	}
	return &MapOption{
		Base:       NewOption(def, raw, deps),
		resetValue: resetValue,
	}
}

// ResetValue returns the value Remove stores under key.
func (m *MapOption) ResetValue(key string) any {
	return m.resetValue(key)
}

// Add merges item over the current value and runs the result through Set.
// Non-map input is rejected.
func (m *MapOption) Add(item any, deps Reader) bool {
	incoming, ok := validate.AsMap(item)
	if !ok {
		m.errs = Errors{{
			Code:     NamespacedCode(goskema.CodeInvalidType, m.Key()),
			Message:  fmt.Sprintf("%s expects an object to merge.", m.Key()),
			Severity: SeverityBlocking,
		}}
		return false
	}
	merged := m.current()
	maps.Copy(merged, incoming)
	return m.Set(merged, deps)
}

// Remove replaces key's value with its reset value. The key is kept; absent
// keys are left alone and report false.
func (m *MapOption) Remove(key string) bool {
	current := m.current()
	if _, ok := current[key]; !ok {
		return false
	}
	current[key] = m.ResetValue(key)
	m.assign(current)
	return true
}

func (m *MapOption) current() map[string]any {
	if value, ok := validate.AsMap(m.Get()); ok && value != nil {
		return maps.Clone(value)
	}
	return map[string]any{}
}
