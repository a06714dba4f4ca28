package opts

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/goliatone/go-langopts/validate"
	"github.com/invopop/jsonschema"
)

// CodeReentrantSet is reported when an option's own pipeline tries to set it.
const CodeReentrantSet = "reentrant_set"

// Reader is read-only access to option values. Option pipelines receive a
// Reader scoped to the options registered before them.
type Reader interface {
	Get(key string) (any, bool)
	Keys() []string
}

// ReaderSnapshot copies every value visible through r.
func ReaderSnapshot(r Reader) map[string]any {
	if r == nil {
		return map[string]any{}
	}
	keys := r.Keys()
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		if value, ok := r.Get(key); ok {
			out[key] = value
		}
	}
	return out
}

// MapReader adapts a plain map to Reader. Keys are reported sorted.
type MapReader map[string]any

// Get implements Reader.
func (m MapReader) Get(key string) (any, bool) {
	value, ok := m[key]
	return cloneValue(value), ok
}

// Keys implements Reader.
func (m MapReader) Keys() []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Sanitizer turns an already validated value into the value to commit. It may
// record errors on report; a blocking error discards the write.
type Sanitizer func(value any, deps Reader, report *Report) any

// Refinement wraps the next sanitizer with a domain rule. A refinement can
// short-circuit (never calling next) or post-process next's output.
type Refinement func(next Sanitizer) Sanitizer

// ChainRefinements composes refinements; the first one is the outermost.
func ChainRefinements(refinements ...Refinement) Refinement {
	return func(next Sanitizer) Sanitizer {
		for i := len(refinements) - 1; i >= 0; i-- {
			if refinements[i] != nil {
				next = refinements[i](next)
			}
		}
		return next
	}
}

// Definition declares everything an option kind or business rule contributes
// to the common pipeline.
type Definition struct {
	Key         string
	Description string
	Default     any
	// Schema returns the kind-specific partial schema. It is merged through
	// BuildSchema and memoized.
	Schema func() *jsonschema.Schema
	// SchemaKey, when set, keys the schema memo on external state: the schema
	// is rebuilt only when the returned fingerprint changes.
	SchemaKey     func() string
	SchemaOptions []SchemaOption
	// Prepare normalizes raw input before validation.
	Prepare func(value any, report *Report) any
	// Refine wraps the generic sanitizer with domain rules.
	Refine Refinement
}

// Result is the outcome of one pipeline run.
type Result struct {
	Value    any
	Previous any
	Errors   Errors
	Accepted bool
}

// Option is a single named, schema-governed configuration value.
type Option interface {
	Key() string
	Description() string
	Get() any
	Default() any
	Set(value any, deps Reader) bool
	Apply(value any, deps Reader) Result
	Reset()
	Schema() *jsonschema.Schema
	Errors() Errors
	HasBlockingErrors() bool
}

// Base implements Option for every kind; kinds differ only by Definition.
type Base struct {
	def       Definition
	value     any
	errs      Errors
	schema    *jsonschema.Schema
	schemaKey string
	applying  bool
}

// NewOption builds an option from def and hydrates it with raw. A nil raw
// value, or one the pipeline rejects, leaves the option at its default.
func NewOption(def Definition, raw any, deps Reader) *Base {
	if def.Key == "" {
		panic(ErrOptionKeyRequired)
	}
	if def.Schema == nil {
		panic(fmt.Sprintf("opts: option %q has no schema", def.Key))
	}
	b := &Base{def: def, value: cloneValue(def.Default)}
	if raw != nil {
		b.Set(raw, deps)
	}
	return b
}

// Key returns the option identifier.
func (b *Base) Key() string {
	return b.def.Key
}

// Description returns the human-readable documentation string.
func (b *Base) Description() string {
	return b.def.Description
}

// Get returns a copy of the current value.
func (b *Base) Get() any {
	return cloneValue(b.value)
}

// Default returns a copy of the default value.
func (b *Base) Default() any {
	return cloneValue(b.def.Default)
}

// Set runs the pipeline and commits the sanitized value when no blocking
// error was recorded. Errors from the previous call are discarded first.
// A Set issued from within the option's own pipeline is refused without
// touching state.
func (b *Base) Set(value any, deps Reader) bool {
	if b.applying {
		return false
	}
	result := b.Apply(value, deps)
	b.errs = result.Errors
	if !result.Accepted {
		return false
	}
	b.value = result.Value
	return true
}

// Apply runs validate and sanitize against value without committing it.
func (b *Base) Apply(value any, deps Reader) Result {
	previous := cloneValue(b.value)
	if b.applying {
		return Result{
			Value:    previous,
			Previous: previous,
			Errors: Errors{{
				Code:     NamespacedCode(CodeReentrantSet, b.def.Key),
				Message:  fmt.Sprintf("Option %s cannot be set from its own pipeline.", b.def.Key),
				Severity: SeverityBlocking,
			}},
		}
	}
	b.applying = true
	defer func() { b.applying = false }()

	if deps == nil {
		deps = MapReader{}
	}
	report := newReport(b.def.Key)
	schema := b.memoizedSchema()

	if b.def.Prepare != nil {
		value = b.def.Prepare(value, report)
	}
	if issues := validate.Validate(value, schema); len(issues) > 0 {
		report.AddIssues(issues, SeverityBlocking)
		return Result{Value: previous, Previous: previous, Errors: report.Errors()}
	}

	sanitized := b.sanitizer(schema)(value, deps, report)
	if report.Blocked() {
		return Result{Value: previous, Previous: previous, Errors: report.Errors()}
	}
	return Result{
		Value:    sanitized,
		Previous: previous,
		Errors:   report.Errors(),
		Accepted: true,
	}
}

func (b *Base) sanitizer(schema *jsonschema.Schema) Sanitizer {
	generic := func(value any, _ Reader, report *Report) any {
		out, issues := validate.Sanitize(value, schema)
		if len(issues) > 0 {
			report.AddIssues(issues, SeverityBlocking)
			return value
		}
		return out
	}
	if b.def.Refine == nil {
		return generic
	}
	return b.def.Refine(generic)
}

// Reset restores the default value without validation.
func (b *Base) Reset() {
	b.value = cloneValue(b.def.Default)
	b.errs = nil
}

// Schema returns a copy of the memoized schema. Top-level fields, Enum,
// Required and Extras may be changed by the caller without affecting
// validation; nested schemas are shared and must be treated as read-only.
func (b *Base) Schema() *jsonschema.Schema {
	out := *b.memoizedSchema()
	out.Enum = slices.Clone(out.Enum)
	out.Required = slices.Clone(out.Required)
	out.Extras = maps.Clone(out.Extras)
	return &out
}

// memoizedSchema rebuilds the schema only after InvalidateSchema or when
// SchemaKey reports a new fingerprint.
func (b *Base) memoizedSchema() *jsonschema.Schema {
	key := ""
	if b.def.SchemaKey != nil {
		key = b.def.SchemaKey()
	}
	if b.schema != nil && key == b.schemaKey {
		return b.schema
	}
	b.schema = BuildSchema(b.def.Key, b.def.Description, b.def.Schema(), b.def.SchemaOptions...)
	b.schemaKey = key
	return b.schema
}

// InvalidateSchema drops the memoized schema.
func (b *Base) InvalidateSchema() {
	b.schema = nil
}

// Errors returns the diagnostics of the most recent Set.
func (b *Base) Errors() Errors {
	return b.errs.clone()
}

// HasBlockingErrors reports whether the most recent Set was blocked.
func (b *Base) HasBlockingErrors() bool {
	return b.errs.HasBlocking()
}

// assign replaces the value directly. Callers guarantee conformance.
func (b *Base) assign(value any) {
	b.value = value
	b.errs = nil
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case []any:
		if typed == nil {
			return typed
		}
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]any:
		if typed == nil {
			return typed
		}
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = cloneValue(item)
		}
		return out
	default:
		return value
	}
}
