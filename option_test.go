package opts

import (
	"reflect"
	"slices"
	"strconv"
	"testing"

	"github.com/invopop/jsonschema"
)

func forceLangDefinition() Definition {
	def := IntegerDefinition("force_lang", "How the language is set.")
	def.Default = 1
	def.Schema = func() *jsonschema.Schema {
		return &jsonschema.Schema{Type: "integer", Enum: []any{1, 2, 3}}
	}
	return def
}

func TestBuildSchemaMergesCommonMetadata(t *testing.T) {
	partial := &jsonschema.Schema{Type: "boolean", Title: "ignored", Description: "Custom text."}
	schema := BuildSchema("rewrite", "Remove /language/ from URLs.", partial)

	if schema.Title != "rewrite" {
		t.Fatalf("expected title to be the key, got %q", schema.Title)
	}
	if schema.Description != "Custom text." {
		t.Fatalf("expected partial description to win, got %q", schema.Description)
	}
	if schema.Version != jsonschema.Version {
		t.Fatalf("expected dialect %q, got %q", jsonschema.Version, schema.Version)
	}
	if got := schema.Extras["context"]; !reflect.DeepEqual(got, []string{ContextEdit}) {
		t.Fatalf("expected default edit context, got %v", got)
	}
	if partial.Title != "ignored" || partial.Extras != nil {
		t.Fatalf("partial must not be mutated: %+v", partial)
	}

	described := BuildSchema("rewrite", "Remove /language/ from URLs.", &jsonschema.Schema{Type: "boolean"}, WithContexts("view", "edit"))
	if described.Description != "Remove /language/ from URLs." {
		t.Fatalf("expected option description fallback, got %q", described.Description)
	}
	if got := described.Extras["context"]; !reflect.DeepEqual(got, []string{"view", "edit"}) {
		t.Fatalf("expected custom contexts, got %v", got)
	}
}

func TestBuildSchemaRequiresType(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for untyped partial")
		}
	}()
	BuildSchema("broken", "", &jsonschema.Schema{})
}

func TestListPrepareIsIdempotent(t *testing.T) {
	input := []any{"a", "b", "a", "c", "b"}
	want := []any{"a", "b", "c"}

	once := Unique(input)
	if !reflect.DeepEqual(want, once) {
		t.Fatalf("expected %v, got %v", want, once)
	}
	if twice := Unique(once); !reflect.DeepEqual(once, twice) {
		t.Fatalf("expected dedup to be idempotent, got %v then %v", once, twice)
	}

	report := newReport("post_types")
	prepared := PrepareList([]string{"book", "book", "movie"}, report)
	if !reflect.DeepEqual([]any{"book", "movie"}, prepared) {
		t.Fatalf("unexpected prepared list %v", prepared)
	}
	errs := report.Errors()
	if len(errs) != 1 || errs[0].Code != "duplicate_items_post_types" || errs[0].Severity.Blocking() {
		t.Fatalf("expected one non-blocking duplicate warning, got %+v", errs)
	}

	if got := PrepareList("book", newReport("post_types")); got != "book" {
		t.Fatalf("expected scalar input to pass through, got %v", got)
	}
}

func TestListSetCommitsDeduplicatedValue(t *testing.T) {
	opt := NewOption(ListDefinition("sync", "Synchronized fields.", nil), nil, nil)

	if !opt.Set([]string{"taxonomies", "taxonomies", "sticky_posts"}, nil) {
		t.Fatalf("expected set to commit, errors: %v", opt.Errors())
	}
	if got := opt.Get(); !reflect.DeepEqual([]any{"taxonomies", "sticky_posts"}, got) {
		t.Fatalf("unexpected value %v", got)
	}
	if opt.HasBlockingErrors() || !opt.Errors().Has("duplicate_items_sync") {
		t.Fatalf("expected only a duplicate warning, got %+v", opt.Errors())
	}

	if opt.Set("taxonomies", nil) {
		t.Fatalf("expected scalar input to be rejected")
	}
	if !opt.Errors().Has("invalid_type_sync") {
		t.Fatalf("expected namespaced type error, got %v", opt.Errors().Codes())
	}
}

func TestBlockingRejectionPreservesState(t *testing.T) {
	opt := NewOption(forceLangDefinition(), 2, nil)
	if got := opt.Get(); got != 2 {
		t.Fatalf("expected hydrated value 2, got %v", got)
	}

	cases := []struct {
		name  string
		input any
		code  string
	}{
		{name: "outside enum", input: 7, code: "invalid_enum_force_lang"},
		{name: "wrong type", input: "abc", code: "invalid_type_force_lang"},
		{name: "nil", input: nil, code: "invalid_type_force_lang"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if opt.Set(tc.input, nil) {
				t.Fatalf("expected rejection")
			}
			if got := opt.Get(); got != 2 {
				t.Fatalf("expected previous value 2 to survive, got %v", got)
			}
			if codes := opt.Errors().Codes(); !slices.Equal(codes, []string{tc.code}) {
				t.Fatalf("expected %s, got %v", tc.code, codes)
			}
			if !opt.HasBlockingErrors() {
				t.Fatalf("expected blocking errors")
			}
		})
	}

	if !opt.Set("3", nil) {
		t.Fatalf("expected numeric string to be accepted, errors: %v", opt.Errors())
	}
	if got := opt.Get(); got != 3 {
		t.Fatalf("expected canonical int 3, got %#v", got)
	}
	if len(opt.Errors()) != 0 {
		t.Fatalf("expected errors reset by the new call, got %v", opt.Errors())
	}
}

func TestInvalidInitialValueFallsBackToDefault(t *testing.T) {
	opt := NewOption(forceLangDefinition(), 9, nil)
	if got := opt.Get(); got != 1 {
		t.Fatalf("expected default 1, got %v", got)
	}
	if !opt.HasBlockingErrors() {
		t.Fatalf("expected hydration diagnostics to be kept")
	}
}

func TestSanitizeBlockingKeepsPreviousValue(t *testing.T) {
	def := StringDefinition("default_lang", "")
	def.Refine = func(next Sanitizer) Sanitizer {
		return func(value any, deps Reader, report *Report) any {
			out := next(value, deps, report)
			if out == "xx" {
				report.Block(NamespacedCode("invalid_language", report.Key()), "Unknown language.")
			}
			return out
		}
	}
	opt := NewOption(def, "en", nil)

	result := opt.Apply("xx", nil)
	if result.Accepted || result.Value != "en" || result.Previous != "en" {
		t.Fatalf("unexpected dry run result %+v", result)
	}
	if opt.Get() != "en" || len(opt.Errors()) != 0 {
		t.Fatalf("apply must not touch state")
	}

	if opt.Set("xx", nil) {
		t.Fatalf("expected refinement to block")
	}
	if opt.Get() != "en" {
		t.Fatalf("expected previous value, got %v", opt.Get())
	}
	if codes := opt.Errors().Codes(); !slices.Equal(codes, []string{"invalid_language_default_lang"}) {
		t.Fatalf("unexpected codes %v", codes)
	}
}

func TestErrorCodesAreNamespacedPerOption(t *testing.T) {
	rewrite := NewOption(BooleanDefinition("rewrite", ""), nil, nil)
	browser := NewOption(BooleanDefinition("browser", ""), nil, nil)

	if rewrite.Set("maybe", nil) || browser.Set("maybe", nil) {
		t.Fatalf("expected both writes to be rejected")
	}
	a := rewrite.Errors()[0]
	b := browser.Errors()[0]
	if a.Code == b.Code {
		t.Fatalf("expected distinct codes, both were %q", a.Code)
	}
	if a.Code != "invalid_type_rewrite" || b.Code != "invalid_type_browser" {
		t.Fatalf("unexpected codes %q %q", a.Code, b.Code)
	}
	if a.Message != b.Message {
		t.Fatalf("expected messages copied verbatim, got %q and %q", a.Message, b.Message)
	}
}

func TestSchemaIsMemoized(t *testing.T) {
	builds := 0
	def := BooleanDefinition("media_support", "")
	def.Schema = func() *jsonschema.Schema {
		builds++
		return &jsonschema.Schema{Type: "boolean"}
	}
	opt := NewOption(def, nil, nil)

	opt.Schema()
	opt.Schema()
	opt.Set(true, nil)
	if builds != 1 {
		t.Fatalf("expected one schema build, got %d", builds)
	}

	opt.InvalidateSchema()
	opt.Schema()
	if builds != 2 {
		t.Fatalf("expected rebuild after invalidation, builds=%d", builds)
	}
}

func TestSchemaReturnsDetachedCopy(t *testing.T) {
	def := IntegerDefinition("force_lang", "")
	def.Default = 1
	def.Schema = func() *jsonschema.Schema {
		return &jsonschema.Schema{Type: "integer", Enum: []any{1, 2, 3}}
	}
	opt := NewOption(def, nil, nil)

	schema := opt.Schema()
	schema.Enum[0] = 9
	schema.Enum = append(schema.Enum, 0)
	schema.Type = "string"

	again := opt.Schema()
	if again == schema {
		t.Fatalf("expected a fresh copy per call")
	}
	if again.Type != "integer" || len(again.Enum) != 3 || again.Enum[0] != 1 {
		t.Fatalf("expected memoized schema untouched, got %s %v", again.Type, again.Enum)
	}
	if opt.Set(0, nil) {
		t.Fatalf("expected 0 rejected by the memoized enum")
	}
	if !opt.Set(2, nil) {
		t.Fatalf("expected 2 accepted, got %v", opt.Errors())
	}
}

func TestSchemaKeyRebuildsOnExternalChange(t *testing.T) {
	flag := false
	builds := 0
	def := IntegerDefinition("force_lang", "")
	def.Default = 1
	def.SchemaKey = func() string { return strconv.FormatBool(flag) }
	def.Schema = func() *jsonschema.Schema {
		builds++
		enum := []any{1, 2, 3}
		if flag {
			enum = append([]any{0}, enum...)
		}
		return &jsonschema.Schema{Type: "integer", Enum: enum}
	}
	opt := NewOption(def, nil, nil)

	if opt.Set(0, nil) {
		t.Fatalf("expected 0 to be rejected while the flag is off")
	}
	flag = true
	if !opt.Set(0, nil) {
		t.Fatalf("expected 0 to be accepted once the flag is on: %v", opt.Errors())
	}
	opt.Schema()
	if builds != 2 {
		t.Fatalf("expected one build per flag state, got %d", builds)
	}
}

func TestSetIsNotReentrant(t *testing.T) {
	var opt *Base
	var nested bool
	def := BooleanDefinition("redirect_lang", "")
	def.Refine = func(next Sanitizer) Sanitizer {
		return func(value any, deps Reader, report *Report) any {
			nested = opt.Set(false, deps)
			return next(value, deps, report)
		}
	}
	opt = NewOption(def, nil, nil)

	if !opt.Set(true, nil) {
		t.Fatalf("expected outer set to commit: %v", opt.Errors())
	}
	if nested {
		t.Fatalf("expected nested set to be refused")
	}
	if opt.Get() != true {
		t.Fatalf("expected outer value, got %v", opt.Get())
	}
	result := func() Result {
		opt.applying = true
		defer func() { opt.applying = false }()
		return opt.Apply(false, nil)
	}()
	if result.Accepted || !result.Errors.Has("reentrant_set_redirect_lang") {
		t.Fatalf("expected re-entrant apply to be reported, got %+v", result)
	}
}

func TestResetRestoresDefaultWithoutValidation(t *testing.T) {
	opt := NewOption(ListDefinition("post_types", "", nil), []any{"book"}, nil)
	opt.Set(1, nil)
	opt.Reset()
	if got := opt.Get(); !reflect.DeepEqual([]any{}, got) {
		t.Fatalf("expected empty default, got %v", got)
	}
	if len(opt.Errors()) != 0 {
		t.Fatalf("expected reset to clear errors")
	}

	got := opt.Get().([]any)
	got = append(got, "leak")
	if len(opt.Get().([]any)) != 0 || len(opt.Default().([]any)) != 0 {
		t.Fatalf("expected values to be copied out, got %v", got)
	}
}
