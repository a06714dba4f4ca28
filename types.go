package opts

import (
	"log/slog"
	"time"

	"github.com/goliatone/go-langopts/pkg/activity"
)

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

const (
	// SchemaFormatJSONSchema represents the collection as one JSON Schema object.
	SchemaFormatJSONSchema SchemaFormat = "jsonschema"
	// SchemaFormatOpenAPI represents OpenAPI-compatible documents.
	SchemaFormatOpenAPI SchemaFormat = "openapi"
)

// SchemaDocument encapsulates a generated schema output alongside its format
// identifier. Implementations must ensure Document is JSON-serialisable.
type SchemaDocument struct {
	Format   SchemaFormat
	Document any
}

// SchemaGenerator transforms an options collection into a schema document.
// Implementations must handle a nil collection by returning an empty
// document.
type SchemaGenerator interface {
	Generate(options *Options) (SchemaDocument, error)
}

// Response stores a typed result produced by an evaluator.
type Response[T any] struct {
	Value T
}

// RuleContext carries inputs needed when evaluating an expression.
type RuleContext struct {
	Snapshot any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	// Subject names what is being evaluated (an option key, a filter name).
	Subject string
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) subjectLabel() string {
	if ctx.Subject != "" {
		return ctx.Subject
	}
	return "unknown"
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// ConfigOption configures an Options collection.
type ConfigOption func(*optionsConfig)

type optionsConfig struct {
	evaluator       Evaluator
	programCache    ProgramCache
	functions       *FunctionRegistry
	evalLogger      EvaluatorLogger
	logger          *slog.Logger
	schemaGenerator SchemaGenerator
	emitter         *activity.Emitter
	actor           activity.OptionsEventInput
}

func applyOptions(opts []ConfigOption) optionsConfig {
	cfg := optionsConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return cfg
}

// WithEvaluator configures the evaluator used by Evaluate.
func WithEvaluator(e Evaluator) ConfigOption {
	return func(cfg *optionsConfig) {
		cfg.evaluator = e
	}
}

// WithSchemaGenerator configures a custom schema generator implementation.
func WithSchemaGenerator(generator SchemaGenerator) ConfigOption {
	return func(cfg *optionsConfig) {
		cfg.schemaGenerator = generator
	}
}

// WithLogger attaches a structured logger. A nil logger keeps the discard
// default.
func WithLogger(logger *slog.Logger) ConfigOption {
	return func(cfg *optionsConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

func (o *Options) evaluatorLogger() EvaluatorLogger {
	if o.cfg.evalLogger != nil {
		return o.cfg.evalLogger
	}
	return noopEvaluatorLogger{}
}

func (o *Options) schemaGenerator() SchemaGenerator {
	if o == nil || o.cfg.schemaGenerator == nil {
		return DefaultSchemaGenerator()
	}
	return o.cfg.schemaGenerator
}
