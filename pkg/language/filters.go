package language

import (
	"fmt"
	"log/slog"

	opts "github.com/goliatone/go-langopts"
	"github.com/goliatone/go-langopts/proxy"
)

// Built-in filter names.
const (
	FilterActive      = "active"
	FilterHideEmpty   = "hide_empty"
	FilterHideDefault = "hide_default"
)

var (
	// Active keeps languages enabled on the front end.
	Active = proxy.Where(func(l Language) bool { return l.Active })
	// HideEmpty keeps languages with at least one translated object.
	HideEmpty = proxy.Where(func(l Language) bool { return l.Count > 0 })
	// HideDefault drops the default language.
	HideDefault = proxy.Where(func(l Language) bool { return !l.IsDefault })
)

// DefaultFilters returns a registry holding the built-in filters.
func DefaultFilters() *proxy.Registry[Language] {
	return proxy.NewRegistry[Language]().
		MustRegister(FilterActive, Active).
		MustRegister(FilterHideEmpty, HideEmpty).
		MustRegister(FilterHideDefault, HideDefault)
}

// ExpressionFilter compiles expression once and keeps the languages for which
// it evaluates to true. Language fields are exposed under their json names
// (slug, locale, count, is_default ...). A language whose evaluation fails is
// dropped and the failure logged.
func ExpressionFilter(evaluator opts.Evaluator, expression string, logger *slog.Logger) (proxy.Filter[Language], error) {
	if evaluator == nil {
		evaluator = opts.NewExprEvaluator()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rule, err := evaluator.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("language: compile filter %q: %w", expression, err)
	}
	return proxy.Where(func(l Language) bool {
		result, err := rule.Evaluate(opts.RuleContext{Snapshot: l.Map(), Subject: l.Slug})
		if err != nil {
			logger.Warn("language filter failed", "language", l.Slug, "expression", expression, "error", err)
			return false
		}
		keep, ok := result.(bool)
		return ok && keep
	}), nil
}

// RegisterExpression compiles expression and registers it as name.
func RegisterExpression(registry *proxy.Registry[Language], name string, evaluator opts.Evaluator, expression string, logger *slog.Logger) error {
	filter, err := ExpressionFilter(evaluator, expression, logger)
	if err != nil {
		return err
	}
	return registry.Register(name, filter)
}
