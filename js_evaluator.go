//go:build js_eval

package opts

import (
	"fmt"

	"github.com/dop251/goja"
)

const jsEvaluatorBuilt = true

// jsEvaluator runs expressions with goja. Each evaluation gets a fresh
// runtime; compiled programs are shared.
type jsEvaluator struct {
	evaluatorConfig
}

// NewJSEvaluator constructs an Evaluator backed by goja.
func NewJSEvaluator(options ...EvaluatorOption) Evaluator {
	return &jsEvaluator{evaluatorConfig: newEvaluatorConfig(options)}
}

// Engine implements engineNamer.
func (e *jsEvaluator) Engine() string {
	return EngineJS
}

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *jsEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	return e.compile(expression)
}

func (e *jsEvaluator) compile(expression string) (*jsRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(EngineJS, errEmptyExpression)
	}
	key := programKey(EngineJS, expression)
	if cached, ok := e.load(key); ok {
		if program, ok := cached.(*goja.Program); ok {
			return &jsRule{evaluator: e, program: program, expression: expression}, nil
		}
	}
	// Wrapping keeps statements like `return` out of expressions.
	program, err := goja.Compile(key, fmt.Sprintf("(function(){ return (%s); })()", expression), false)
	if err != nil {
		return nil, wrapEvaluationError(EngineJS, expression, "", err)
	}
	e.store(key, program)
	return &jsRule{evaluator: e, program: program, expression: expression}, nil
}

type jsRule struct {
	evaluator  *jsEvaluator
	program    *goja.Program
	expression string
}

func (r *jsRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	vm := goja.New()
	for name, value := range r.evaluator.bindings(ctx) {
		if err := vm.Set(name, value); err != nil {
			return nil, wrapEvaluationError(EngineJS, r.expression, ctx.subjectLabel(), err)
		}
	}
	value, err := vm.RunProgram(r.program)
	if err != nil {
		return nil, wrapEvaluationError(EngineJS, r.expression, ctx.subjectLabel(), err)
	}
	return value.Export(), nil
}
