package opts

import (
	"errors"
	"fmt"
	"time"
)

var ErrNoEvaluator = errors.New("opts: evaluator not configured")

// Evaluate executes expr against the collection snapshot. Option keys are
// exposed as variables.
func (o *Options) Evaluate(expr string) (Response[any], error) {
	return o.EvaluateWith(RuleContext{}, expr)
}

// EvaluateWith executes expr using ctx, falling back to the collection
// snapshot when ctx.Snapshot is nil.
func (o *Options) EvaluateWith(ctx RuleContext, expr string) (Response[any], error) {
	if expr == "" {
		return Response[any]{}, fmt.Errorf("expression must not be empty")
	}
	evaluator, err := o.resolveEvaluator()
	if err != nil {
		return Response[any]{}, err
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = o.Snapshot()
	}
	ctx = ctx.withDefaults()
	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	evalErr = wrapEvaluationError(engine, expr, ctx.subjectLabel(), evalErr)
	o.evaluatorLogger().LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Subject:  ctx.subjectLabel(),
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return Response[any]{}, evalErr
	}
	return Response[any]{Value: value}, nil
}

// Evaluator returns the configured evaluator, building the default expr
// evaluator on first use.
func (o *Options) Evaluator() (Evaluator, error) {
	return o.resolveEvaluator()
}

func (o *Options) resolveEvaluator() (Evaluator, error) {
	if o.cfg.evaluator != nil {
		return o.cfg.evaluator, nil
	}
	o.cfg.evaluator = NewExprEvaluator(
		EvaluatorWithProgramCache(o.cfg.programCache),
		EvaluatorWithFunctions(o.cfg.functions),
	)
	return o.cfg.evaluator, nil
}

// EvaluatorByName builds the evaluator for engine (expr, cel or js) sharing
// cache and functions. Unknown engines, and js without the js_eval build
// tag, yield ErrNoEvaluator.
func EvaluatorByName(engine string, cache ProgramCache, functions *FunctionRegistry) (Evaluator, error) {
	options := []EvaluatorOption{EvaluatorWithProgramCache(cache), EvaluatorWithFunctions(functions)}
	switch engine {
	case "", EngineExpr:
		return NewExprEvaluator(options...), nil
	case EngineCEL:
		return NewCELEvaluator(options...), nil
	case EngineJS:
		if !jsEvaluatorBuilt {
			return nil, fmt.Errorf("%w: js requires the js_eval build tag", ErrNoEvaluator)
		}
		return NewJSEvaluator(options...), nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrNoEvaluator, engine)
	}
}
