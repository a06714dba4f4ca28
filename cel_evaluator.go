package opts

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// celEvaluator runs expressions with cel-go. CEL checks variables at compile
// time, so a program is built per expression and snapshot key set. Snapshot
// values are declared dyn.
type celEvaluator struct {
	evaluatorConfig
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(options ...EvaluatorOption) Evaluator {
	return &celEvaluator{evaluatorConfig: newEvaluatorConfig(options)}
}

// Engine implements engineNamer.
func (e *celEvaluator) Engine() string {
	return EngineCEL
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(EngineCEL, errEmptyExpression)
	}
	ctx = ctx.withDefaults()
	env := e.bindings(ctx)
	delete(env, "call")
	for _, name := range e.functions.Names() {
		delete(env, name)
	}

	program, err := e.program(expression, snapshotKeys(snapshotAsMap(ctx.Snapshot)))
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, ctx.subjectLabel(), err)
	}
	out, _, err := program.Eval(env)
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, ctx.subjectLabel(), err)
	}
	return out.Value(), nil
}

// Compile defers compilation to evaluation, once the snapshot keys are known.
func (e *celEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(EngineCEL, errEmptyExpression)
	}
	return celRule{evaluator: e, expression: expression}, nil
}

func (e *celEvaluator) program(expression string, variables []string) (celgo.Program, error) {
	key := programKey(EngineCEL, expression, variables...)
	if cached, ok := e.load(key); ok {
		if program, ok := cached.(celgo.Program); ok {
			return program, nil
		}
	}

	env, err := e.environment(variables)
	if err != nil {
		return nil, err
	}
	checked, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(checked)
	if err != nil {
		return nil, err
	}
	e.store(key, program)
	return program, nil
}

func (e *celEvaluator) environment(variables []string) (*celgo.Env, error) {
	declarations := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
		celgo.Variable("subject", celgo.StringType),
	}
	for _, name := range variables {
		declarations = append(declarations, celgo.Variable(name, celgo.DynType))
	}
	if e.functions != nil {
		declarations = append(declarations, celgo.Function("call", overloads("call", celgo.StringType, e.dispatch)...))
		for _, name := range e.functions.Names() {
			call := e.functions.bound(name)
			declarations = append(declarations, celgo.Function(name, overloads(name, nil, func(values ...ref.Val) ref.Val {
				return toCELValue(call(nativeValues(values)...))
			})...))
		}
	}
	return celgo.NewEnv(declarations...)
}

// maxCELArity bounds the dyn arguments a registered function accepts in CEL,
// which has no variadic overloads.
const maxCELArity = 4

// overloads declares name for 0..maxCELArity dyn arguments, after first when
// it is set.
func overloads(name string, first *celgo.Type, binding func(values ...ref.Val) ref.Val) []celgo.FunctionOpt {
	out := make([]celgo.FunctionOpt, 0, maxCELArity+1)
	for arity := 0; arity <= maxCELArity; arity++ {
		args := make([]*celgo.Type, 0, arity+1)
		if first != nil {
			args = append(args, first)
		}
		for range arity {
			args = append(args, celgo.DynType)
		}
		out = append(out, celgo.Overload(
			fmt.Sprintf("%s_dyn_%d", name, arity),
			args,
			celgo.DynType,
			celgo.FunctionBinding(binding),
		))
	}
	return out
}

// dispatch serves call(name, args...).
func (e *celEvaluator) dispatch(values ...ref.Val) ref.Val {
	if len(values) == 0 {
		return types.NewErr("opts: call requires a function name")
	}
	name, ok := values[0].Value().(string)
	if !ok {
		return types.NewErr("opts: call name must be a string")
	}
	return toCELValue(e.functions.Call(name, nativeValues(values[1:])...))
}

func nativeValues(values []ref.Val) []any {
	out := make([]any, len(values))
	for i, value := range values {
		out[i] = value.Value()
	}
	return out
}

func toCELValue(result any, err error) ref.Val {
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}

type celRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r celRule) Evaluate(ctx RuleContext) (any, error) {
	return r.evaluator.Evaluate(ctx, r.expression)
}
