package opts

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"
)

var evaluatorFactories = []struct {
	name string
	new  func(...EvaluatorOption) Evaluator
}{
	{name: EngineExpr, new: NewExprEvaluator},
	{name: EngineCEL, new: NewCELEvaluator},
}

type fakeProgramCache struct {
	store  map[string]any
	hits   int
	misses int
}

func (c *fakeProgramCache) Get(key string) (any, bool) {
	if c.store == nil {
		c.store = make(map[string]any)
	}
	value, ok := c.store[key]
	if ok {
		c.hits++
		return value, true
	}
	c.misses++
	return nil, false
}

func (c *fakeProgramCache) Set(key string, value any) {
	if c.store == nil {
		c.store = make(map[string]any)
	}
	c.store[key] = value
}

type capturingEvaluator struct {
	contexts []RuleContext
}

func (c *capturingEvaluator) Evaluate(ctx RuleContext, _ string) (any, error) {
	c.contexts = append(c.contexts, ctx)
	return true, nil
}

func (c *capturingEvaluator) Compile(string, ...CompileOption) (CompiledRule, error) {
	return nil, fmt.Errorf("capturing evaluator does not support compile")
}

func TestRuleContextDefaultsNow(t *testing.T) {
	capture := &capturingEvaluator{}
	o := newSampleOptions(t, nil, WithEvaluator(capture))

	if _, err := o.Evaluate("force_lang == 1"); err != nil {
		t.Fatalf("unexpected error from Evaluate: %v", err)
	}
	if len(capture.contexts) != 1 {
		t.Fatalf("expected evaluator to receive one context, got %d", len(capture.contexts))
	}
	ctx := capture.contexts[0]
	if ctx.Now == nil || ctx.Now.IsZero() {
		t.Fatalf("expected Evaluate to default RuleContext.Now")
	}
	snapshot, ok := ctx.Snapshot.(map[string]any)
	if !ok || snapshot["force_lang"] != 1 {
		t.Fatalf("expected collection snapshot, got %#v", ctx.Snapshot)
	}
}

func TestEvaluateAgainstCollection(t *testing.T) {
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			o := newSampleOptions(t, nil, WithEvaluator(factory.new()))
			o.Set("force_lang", 3)

			resp, err := o.Evaluate("force_lang == 3 && rewrite")
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if value, ok := resp.Value.(bool); !ok || !value {
				t.Fatalf("expected true, got %#v", resp.Value)
			}

			resp, err = o.EvaluateWith(RuleContext{Snapshot: map[string]any{"force_lang": 1}}, "force_lang == 3")
			if err != nil {
				t.Fatalf("evaluate with: %v", err)
			}
			if resp.Value != false {
				t.Fatalf("expected snapshot override to apply, got %#v", resp.Value)
			}
		})
	}
}

func TestEvaluatorProgramCache(t *testing.T) {
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			cache := &fakeProgramCache{}
			o := newSampleOptions(t, nil, WithEvaluator(factory.new(EvaluatorWithProgramCache(cache))))
			for i := 0; i < 3; i++ {
				if _, err := o.Evaluate("force_lang > 0"); err != nil {
					t.Fatalf("unexpected error on iteration %d: %v", i, err)
				}
			}
			if cache.misses != 1 || cache.hits != 2 {
				t.Fatalf("expected 1 miss and 2 hits, got %d/%d", cache.misses, cache.hits)
			}
		})
	}
}

func TestDefaultEvaluatorUsesCacheAndFunctions(t *testing.T) {
	cache := NewMemoryProgramCache()
	o := newSampleOptions(t, nil,
		WithProgramCache(cache),
		WithCustomFunction("isSeparateDomains", func(args ...any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("isSeparateDomains expects 1 arg")
			}
			return args[0] == 3, nil
		}),
	)
	o.Set("force_lang", 3)

	resp, err := o.Evaluate("isSeparateDomains(force_lang)")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if resp.Value != true {
		t.Fatalf("expected custom function result true, got %#v", resp.Value)
	}
	if _, ok := cache.Get("expr:isSeparateDomains(force_lang)"); !ok {
		t.Fatalf("expected compiled program to be cached")
	}
	evaluator, err := o.Evaluator()
	if err != nil || evaluatorEngineName(evaluator) != "expr" {
		t.Fatalf("expected default expr evaluator, got %T %v", evaluator, err)
	}
}

func TestEvaluateWrapsErrorsAndLogs(t *testing.T) {
	var events []EvaluatorLogEvent
	o := newSampleOptions(t, nil, WithEvaluatorLogger(EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		events = append(events, event)
	})))

	_, err := o.EvaluateWith(RuleContext{Subject: "force_lang"}, "force_lang +")
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T %v", err, err)
	}
	if evalErr.Engine != "expr" || evalErr.Subject != "force_lang" {
		t.Fatalf("unexpected error metadata %+v", evalErr)
	}
	if len(events) != 1 || events[0].Err == nil || events[0].Subject != "force_lang" {
		t.Fatalf("expected one failed evaluation event, got %+v", events)
	}
	if _, err := o.Evaluate(""); err == nil {
		t.Fatalf("expected empty expression to fail")
	}
}

func TestSlogEvaluatorLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := SlogEvaluatorLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	logger.LogEvaluation(EvaluatorLogEvent{Engine: "expr", Expr: "rewrite", Subject: "rewrite", Duration: time.Millisecond})
	logger.LogEvaluation(EvaluatorLogEvent{Engine: "cel", Expr: "x +", Err: errors.New("syntax")})

	out := buf.String()
	if !strings.Contains(out, `"msg":"evaluation"`) || !strings.Contains(out, `"msg":"evaluation failed"`) {
		t.Fatalf("expected both records, got %s", out)
	}
	if !strings.Contains(out, `"level":"WARN"`) {
		t.Fatalf("expected failures at warn level, got %s", out)
	}
}

func TestEvaluatorByName(t *testing.T) {
	for _, engine := range []string{"", "expr", "cel"} {
		if evaluator, err := EvaluatorByName(engine, nil, nil); err != nil || evaluator == nil {
			t.Fatalf("expected %q evaluator, got %v", engine, err)
		}
	}
	if _, err := EvaluatorByName("lua", nil, nil); !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator, got %v", err)
	}
	if !jsEvaluatorBuilt {
		if _, err := EvaluatorByName("js", nil, nil); !errors.Is(err, ErrNoEvaluator) {
			t.Fatalf("expected js to be unavailable without the build tag, got %v", err)
		}
	}
}

func TestRuleRefinement(t *testing.T) {
	def := IntegerDefinition("first_activation", "")
	def.Refine = RuleRefinement(nil, "value <= now.Unix()", "future_timestamp", "Activation cannot be in the future.")
	opt := NewOption(def, nil, nil)

	if !opt.Set(1700000000, nil) {
		t.Fatalf("expected past timestamp to commit: %v", opt.Errors())
	}
	future := time.Now().Add(time.Hour).Unix()
	if opt.Set(future, nil) {
		t.Fatalf("expected future timestamp to be rejected")
	}
	if !opt.Errors().Has("future_timestamp_first_activation") {
		t.Fatalf("expected namespaced rule code, got %v", opt.Errors().Codes())
	}
	if opt.Get() != 1700000000 {
		t.Fatalf("expected previous value kept, got %v", opt.Get())
	}

	broken := IntegerDefinition("broken", "")
	broken.Refine = RuleRefinement(nil, "value +", "never", "")
	brokenOpt := NewOption(broken, nil, nil)
	if brokenOpt.Set(1, nil) || !brokenOpt.Errors().Has("rule_error_broken") {
		t.Fatalf("expected rule_error, got %v", brokenOpt.Errors().Codes())
	}
}

func TestRuleRefinementSeesEarlierOptions(t *testing.T) {
	def := StringDefinition("default_lang", "")
	def.Refine = RuleRefinement(nil, `value == "" || value in options.languages`, "invalid_language", "")
	opt := NewOption(def, nil, nil)
	deps := MapReader{"languages": []any{"en", "fr"}}

	if !opt.Set("fr", deps) {
		t.Fatalf("expected fr to be accepted: %v", opt.Errors())
	}
	if opt.Set("de", deps) {
		t.Fatalf("expected de to be rejected")
	}
	if msg := opt.Errors()[0].Message; !strings.Contains(msg, "default_lang does not satisfy") {
		t.Fatalf("expected generated message, got %q", msg)
	}
}

func TestEvaluatorsShareCacheAndFunctions(t *testing.T) {
	cache := NewMemoryProgramCache()
	functions := NewFunctionRegistry()
	if err := functions.Register("isSeparateDomains", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("isSeparateDomains expects 1 arg")
		}
		return fmt.Sprint(args[0]) == "3", nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	ctx := RuleContext{Snapshot: map[string]any{"force_lang": 3}}

	cases := []struct {
		engine     string
		expression string
	}{
		{engine: EngineExpr, expression: "isSeparateDomains(force_lang)"},
		{engine: EngineCEL, expression: "isSeparateDomains(force_lang)"},
		{engine: EngineCEL, expression: `call("isSeparateDomains", force_lang)`},
	}
	for _, tc := range cases {
		evaluator, err := EvaluatorByName(tc.engine, cache, functions)
		if err != nil {
			t.Fatalf("%s: %v", tc.engine, err)
		}
		value, err := evaluator.Evaluate(ctx, tc.expression)
		if err != nil || value != true {
			t.Fatalf("%s %q: expected true, got %#v %v", tc.engine, tc.expression, value, err)
		}
	}
	if _, ok := cache.Get("expr:isSeparateDomains(force_lang)"); !ok {
		t.Fatalf("expected expr program cached under its engine prefix")
	}
	if _, ok := cache.Get("cel:isSeparateDomains(force_lang)|force_lang"); !ok {
		t.Fatalf("expected cel program cached with its declared variables")
	}
}

func TestFunctionRegistry(t *testing.T) {
	registry := NewFunctionRegistry()
	hello := func(...any) (any, error) { return "hello", nil }
	if err := registry.Register("greet", hello); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("GREET", hello); !errors.Is(err, ErrFunctionExists) {
		t.Fatalf("expected ErrFunctionExists, got %v", err)
	}
	if err := registry.Register("", hello); err == nil {
		t.Fatalf("expected empty name to fail")
	}
	if value, err := registry.Call("Greet"); err != nil || value != "hello" {
		t.Fatalf("expected case-insensitive call, got %v %v", value, err)
	}
	if _, err := registry.Call("missing"); !errors.Is(err, ErrFunctionNotFound) {
		t.Fatalf("expected ErrFunctionNotFound, got %v", err)
	}
	var nilRegistry *FunctionRegistry
	if _, err := nilRegistry.Call("greet"); !errors.Is(err, ErrFunctionNotFound) {
		t.Fatalf("expected nil registry to report not found, got %v", err)
	}

	clone := registry.Clone()
	if err := clone.Register("farewell", hello); err != nil {
		t.Fatalf("register on clone: %v", err)
	}
	if names := registry.Names(); len(names) != 1 || names[0] != "greet" {
		t.Fatalf("expected original untouched, got %v", names)
	}
	if names := clone.Names(); len(names) != 2 || names[0] != "farewell" {
		t.Fatalf("expected sorted clone names, got %v", names)
	}
}
