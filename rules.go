package opts

import (
	"errors"
	"fmt"
)

// CodeRuleError is reported when a rule expression cannot be evaluated.
const CodeRuleError = "rule_error"

// RuleRefinement enforces expression against the sanitized value. The
// expression sees `value`, `options` (the values visible to the option) and
// `now`; anything other than true blocks the write with code.
func RuleRefinement(evaluator Evaluator, expression, code, message string) Refinement {
	if evaluator == nil {
		evaluator = NewExprEvaluator()
	}
	return func(next Sanitizer) Sanitizer {
		return func(value any, deps Reader, report *Report) any {
			out := next(value, deps, report)
			if report.Blocked() {
				return out
			}
			ctx := RuleContext{
				Snapshot: map[string]any{
					"value":   out,
					"options": ReaderSnapshot(deps),
				},
				Subject: report.Key(),
			}
			result, err := evaluator.Evaluate(ctx, expression)
			if err != nil {
				report.add(ruleError(report.Key(), err))
				return out
			}
			if holds, ok := result.(bool); !ok || !holds {
				msg := message
				if msg == "" {
					msg = fmt.Sprintf("%s does not satisfy %s.", report.Key(), expression)
				}
				report.Block(NamespacedCode(code, report.Key()), msg)
			}
			return out
		}
	}
}

// ruleError blocks key with the evaluation failure, keeping the engine and
// expression as data when the evaluator reported them.
func ruleError(key string, err error) Error {
	out := Error{
		Code:     NamespacedCode(CodeRuleError, key),
		Message:  err.Error(),
		Severity: SeverityBlocking,
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		out.Data = map[string]any{"engine": evalErr.Engine, "expression": evalErr.Expr}
	}
	return out
}
