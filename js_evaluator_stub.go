//go:build !js_eval

package opts

const jsEvaluatorBuilt = false

// NewJSEvaluator returns nil unless built with the js_eval tag.
func NewJSEvaluator(...EvaluatorOption) Evaluator {
	return nil
}
