package opts

import (
	"errors"
	"maps"
	"slices"
	"strings"
)

// Engine names accepted by EvaluatorByName.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

var errEmptyExpression = errors.New("expression must not be empty")

// EvaluatorOption configures the built-in evaluators.
type EvaluatorOption func(*evaluatorConfig)

type evaluatorConfig struct {
	cache     ProgramCache
	functions *FunctionRegistry
}

// EvaluatorWithProgramCache shares compiled programs through cache. Keys are
// prefixed with the engine name, so one cache can back several evaluators.
func EvaluatorWithProgramCache(cache ProgramCache) EvaluatorOption {
	return func(cfg *evaluatorConfig) {
		cfg.cache = cache
	}
}

// EvaluatorWithFunctions exposes a copy of functions to expressions, both by
// name and through call(name, args...).
func EvaluatorWithFunctions(functions *FunctionRegistry) EvaluatorOption {
	return func(cfg *evaluatorConfig) {
		cfg.functions = functions.Clone()
	}
}

func newEvaluatorConfig(options []EvaluatorOption) evaluatorConfig {
	var cfg evaluatorConfig
	for _, option := range options {
		if option != nil {
			option(&cfg)
		}
	}
	return cfg
}

func (c evaluatorConfig) load(key string) (any, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(key)
}

func (c evaluatorConfig) store(key string, program any) {
	if c.cache != nil {
		c.cache.Set(key, program)
	}
}

// programKey identifies a compiled program. Engines that bake variable
// declarations into the program pass them as variables.
func programKey(engine, expression string, variables ...string) string {
	key := engine + ":" + expression
	if len(variables) > 0 {
		key += "|" + strings.Join(variables, ",")
	}
	return key
}

// reservedBindings are always bound and shadow snapshot keys of the same name.
var reservedBindings = []string{"now", "args", "metadata", "subject", "call"}

// bindings returns the variables visible to an expression: the snapshot keys
// plus now, args, metadata, subject and the registered functions.
func (c evaluatorConfig) bindings(ctx RuleContext) map[string]any {
	env := maps.Clone(snapshotAsMap(ctx.Snapshot))
	if env == nil {
		env = map[string]any{}
	}
	env["now"] = ctx.timestamp()
	env["args"] = ctx.Args
	env["metadata"] = ctx.Metadata
	env["subject"] = ctx.Subject
	if c.functions != nil {
		env["call"] = c.functions.Call
		for _, name := range c.functions.Names() {
			env[name] = c.functions.bound(name)
		}
	}
	return env
}

// snapshotKeys lists the snapshot keys an engine must declare, sorted and
// without reserved names.
func snapshotKeys(snapshot map[string]any) []string {
	keys := slices.Sorted(maps.Keys(snapshot))
	return slices.DeleteFunc(keys, func(key string) bool {
		return slices.Contains(reservedBindings, key)
	})
}

func snapshotAsMap(value any) map[string]any {
	if m, ok := value.(map[string]any); ok {
		return m
	}
	return nil
}

// engineNamer is implemented by the built-in evaluators.
type engineNamer interface {
	Engine() string
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	if named, ok := e.(engineNamer); ok {
		return named.Engine()
	}
	return "custom"
}
