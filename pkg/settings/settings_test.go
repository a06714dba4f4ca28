package settings

import (
	"errors"
	"reflect"
	"slices"
	"testing"
	"time"

	opts "github.com/goliatone/go-langopts"
	"github.com/goliatone/go-langopts/pkg/language"
	"github.com/goliatone/go-langopts/pkg/state"
)

var _ state.Registrar = Registry{}

type countingCatalog struct {
	types map[ObjectKind][]string
	calls map[ObjectKind]int
}

func (c *countingCatalog) Types(kind ObjectKind) []string {
	if c.calls == nil {
		c.calls = map[ObjectKind]int{}
	}
	c.calls[kind]++
	return c.types[kind]
}

func testEnv(t *testing.T) (Env, StaticFlags, *countingCatalog) {
	t.Helper()
	languages, err := language.NewCatalog(
		language.Language{Slug: "en", Locale: "en_US", IsDefault: true},
		language.Language{Slug: "fr", Locale: "fr_FR", Order: 1},
	)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	flags := StaticFlags{}
	catalog := &countingCatalog{types: map[ObjectKind][]string{
		KindPostType:         {"book", "movie"},
		KindTaxonomy:         {"genre"},
		KindLanguageTaxonomy: {"post_translations"},
	}}
	return Env{Flags: flags, Languages: languages, Catalog: catalog}, flags, catalog
}

func newSettings(t *testing.T, env Env, stored map[string]any) *opts.Options {
	t.Helper()
	o := opts.New()
	if err := DefaultRegistry(env).Register(o, stored); err != nil {
		t.Fatalf("register: %v", err)
	}
	return o
}

func mustGet(t *testing.T, o *opts.Options, key string) any {
	t.Helper()
	value, ok := o.Get(key)
	if !ok {
		t.Fatalf("option %q not registered", key)
	}
	return value
}

func TestDefaultRegistryDeclaresOptionsInOrder(t *testing.T) {
	env, _, _ := testEnv(t)
	o := newSettings(t, env, nil)

	want := []string{
		KeyForceLang, KeyDomains, KeyHideDefault, KeyRewrite, KeyRedirectLang,
		KeyBrowser, KeyMediaSupport, KeyPostTypes, KeyTaxonomies,
		KeyLanguageTaxonomies, KeySync, KeyNavMenus, KeyDefaultLang,
		KeyFirstActivation, KeyVersion, KeyPreviousVersion,
	}
	if !slices.Equal(o.Keys(), want) {
		t.Fatalf("expected keys %v, got %v", want, o.Keys())
	}
	if !slices.Equal(DefaultRegistry(env).Keys(), want) {
		t.Fatalf("registry keys differ from collection keys")
	}

	defaults := map[string]any{
		KeyForceLang:       ForceLangDirectory,
		KeyRewrite:         true,
		KeyHideDefault:     false,
		KeyPostTypes:       []any{},
		KeyNavMenus:        map[string]any{},
		KeyDefaultLang:     "",
		KeyVersion:         "",
		KeyFirstActivation: 0,
	}
	for key, value := range defaults {
		if got := mustGet(t, o, key); !reflect.DeepEqual(got, value) {
			t.Fatalf("%s: expected default %#v, got %#v", key, value, got)
		}
	}
	if o.HasBlockingErrors() {
		t.Fatalf("unexpected errors %v", o.AllErrors())
	}
}

func TestRegisterIsRepeatableOnFreshCollections(t *testing.T) {
	env, _, _ := testEnv(t)
	registry := DefaultRegistry(env)
	stored := map[string]any{KeyForceLang: 2, KeyRewrite: false}

	first := opts.New()
	second := opts.New()
	if err := registry.Register(first, stored); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := registry.Register(second, stored); err != nil {
		t.Fatalf("second register: %v", err)
	}
	if !reflect.DeepEqual(first.Snapshot(), second.Snapshot()) {
		t.Fatalf("expected equal populations:\n%v\n%v", first.Snapshot(), second.Snapshot())
	}
	if err := registry.Register(first, stored); !errors.Is(err, opts.ErrDuplicateOption) {
		t.Fatalf("expected duplicate error on reuse, got %v", err)
	}
}

func TestRegisterRefusesMissingDependency(t *testing.T) {
	env, _, _ := testEnv(t)
	full := DefaultRegistry(env)
	registry := Registry{Entries: []Entry{full.Entries[2], full.Entries[0]}}

	err := registry.Register(opts.New(), nil)
	if !errors.Is(err, ErrMissingDependency) {
		t.Fatalf("expected ErrMissingDependency, got %v", err)
	}
}

func TestRegisterSeedsFromStoredValues(t *testing.T) {
	env, _, _ := testEnv(t)
	o := newSettings(t, env, map[string]any{
		KeyForceLang:   2,
		KeyHideDefault: true,
		KeyDefaultLang: "de",
		KeySync:        []any{"taxonomies", "post_meta", "taxonomies"},
	})

	if got := mustGet(t, o, KeyForceLang); got != 2 {
		t.Fatalf("expected stored force_lang, got %v", got)
	}
	if got := mustGet(t, o, KeyHideDefault); got != true {
		t.Fatalf("expected stored hide_default, got %v", got)
	}
	if got := mustGet(t, o, KeyDefaultLang); got != "" {
		t.Fatalf("expected default_lang to fall back, got %v", got)
	}
	if !o.Errors(KeyDefaultLang).Has("invalid_language_default_lang") {
		t.Fatalf("expected invalid_language_default_lang, got %v", o.Errors(KeyDefaultLang))
	}
	if got := mustGet(t, o, KeySync); !reflect.DeepEqual(got, []any{"taxonomies", "post_meta"}) {
		t.Fatalf("expected deduplicated sync, got %v", got)
	}
}

func TestHideDefaultForcedOffWithSeparateDomains(t *testing.T) {
	env, _, _ := testEnv(t)
	o := newSettings(t, env, nil)

	if !o.Set(KeyHideDefault, true) || mustGet(t, o, KeyHideDefault) != true {
		t.Fatalf("expected hide_default to be stored while force_lang is 1")
	}
	if !o.Set(KeyForceLang, ForceLangDomains) {
		t.Fatalf("force_lang rejected: %v", o.Errors(KeyForceLang))
	}

	for _, key := range []string{KeyHideDefault, KeyBrowser} {
		for _, input := range []any{true, "1", 1, "true"} {
			if !o.Set(key, input) {
				t.Fatalf("%s=%#v: forced write should be accepted, got %v", key, input, o.Errors(key))
			}
			if got := mustGet(t, o, key); got != false {
				t.Fatalf("%s=%#v: expected false, got %v", key, input, got)
			}
			errs := o.Errors(key)
			if !errs.Has("forced_"+key) || errs.HasBlocking() {
				t.Fatalf("%s=%#v: expected non-blocking forced warning, got %v", key, input, errs)
			}
		}
		if !o.Set(key, "0") || len(o.Errors(key)) != 0 {
			t.Fatalf("%s: expected an off value without warning, got %v", key, o.Errors(key))
		}
	}
}

func TestForceLangEnumFollowsFeatureFlag(t *testing.T) {
	env, flags, _ := testEnv(t)
	o := newSettings(t, env, nil)

	if o.Set(KeyForceLang, ForceLangContent) {
		t.Fatalf("expected 0 to be rejected without the flag")
	}
	if !o.Errors(KeyForceLang).Has("invalid_enum_force_lang") {
		t.Fatalf("expected invalid_enum_force_lang, got %v", o.Errors(KeyForceLang))
	}

	option, _ := o.Option(KeyForceLang)
	before := option.Schema()
	if len(before.Enum) != 3 {
		t.Fatalf("expected 3 modes without the flag, got %v", before.Enum)
	}

	flags[FlagLanguageFromContent] = true
	after := option.Schema()
	if len(after.Enum) != 4 {
		t.Fatalf("expected rebuilt schema with 4 modes, got %v", after.Enum)
	}
	if !o.Set(KeyForceLang, ForceLangContent) {
		t.Fatalf("expected 0 to be accepted with the flag, got %v", o.Errors(KeyForceLang))
	}
}

func TestDomainsSanitizesAgainstLanguages(t *testing.T) {
	env, _, _ := testEnv(t)
	o := newSettings(t, env, nil)

	ok := o.Set(KeyDomains, map[string]any{
		"en": "https://example.com/",
		"de": "https://example.de",
	})
	if !ok {
		t.Fatalf("expected domains to be stored, got %v", o.Errors(KeyDomains))
	}
	want := map[string]any{"en": "https://example.com", "fr": ""}
	if got := mustGet(t, o, KeyDomains); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	errs := o.Errors(KeyDomains)
	if !errs.Has("unknown_domains") || errs.HasBlocking() {
		t.Fatalf("expected unknown_domains warning, got %v", errs)
	}

	if o.Set(KeyDomains, map[string]any{"en": "not a url"}) {
		t.Fatalf("expected invalid URL to be rejected")
	}
	if !o.Errors(KeyDomains).Has("invalid_format_domains") {
		t.Fatalf("expected invalid_format_domains, got %v", o.Errors(KeyDomains))
	}
}

func TestDomainsRequiredForEveryLanguageWithSeparateDomains(t *testing.T) {
	env, _, _ := testEnv(t)
	o := newSettings(t, env, map[string]any{KeyForceLang: ForceLangDomains})

	if o.Set(KeyDomains, map[string]any{"en": "https://example.com"}) {
		t.Fatalf("expected missing fr domain to block")
	}
	if !o.Errors(KeyDomains).Has("empty_domains") {
		t.Fatalf("expected empty_domains, got %v", o.Errors(KeyDomains))
	}
	if got := mustGet(t, o, KeyDomains); !reflect.DeepEqual(got, map[string]any{}) {
		t.Fatalf("expected previous value, got %v", got)
	}

	if !o.Add(KeyDomains, map[string]any{"en": "https://example.com", "fr": "https://example.fr"}) {
		t.Fatalf("expected complete domains, got %v", o.Errors(KeyDomains))
	}
	if !o.Remove(KeyDomains, "fr") {
		t.Fatalf("expected remove to succeed")
	}
	if got := mustGet(t, o, KeyDomains); !reflect.DeepEqual(got, map[string]any{"en": "https://example.com", "fr": ""}) {
		t.Fatalf("expected fr key kept with reset value, got %v", got)
	}

	// The reset entry fails empty_domains until it is filled again.
	if o.Add(KeyDomains, map[string]any{"en": "https://example.org"}) {
		t.Fatalf("expected add to stay blocked while fr is empty")
	}
	if !o.Errors(KeyDomains).Has("empty_domains") {
		t.Fatalf("expected empty_domains, got %v", o.Errors(KeyDomains))
	}
	if !o.Add(KeyDomains, map[string]any{"fr": "https://example.fr"}) {
		t.Fatalf("expected refilled fr to be accepted, got %v", o.Errors(KeyDomains))
	}
}

func TestCatalogListsKeepRegisteredTypes(t *testing.T) {
	env, _, catalog := testEnv(t)
	o := newSettings(t, env, nil)

	if !o.Set(KeyPostTypes, []string{"book", "page", "movie", "book"}) {
		t.Fatalf("expected post_types to be stored, got %v", o.Errors(KeyPostTypes))
	}
	if got := mustGet(t, o, KeyPostTypes); !reflect.DeepEqual(got, []any{"book", "movie"}) {
		t.Fatalf("expected intersected list, got %v", got)
	}
	errs := o.Errors(KeyPostTypes)
	if !errs.Has("unknown_post_types") || !errs.Has("duplicate_items_post_types") || errs.HasBlocking() {
		t.Fatalf("expected non-blocking warnings, got %v", errs)
	}

	o.Set(KeyPostTypes, []any{"movie"})
	o.Set(KeyTaxonomies, []any{"genre", "tag"})
	if got := mustGet(t, o, KeyTaxonomies); !reflect.DeepEqual(got, []any{"genre"}) {
		t.Fatalf("expected intersected taxonomies, got %v", got)
	}
	if catalog.calls[KindPostType] != 1 || catalog.calls[KindTaxonomy] != 1 {
		t.Fatalf("expected the catalog to be read once per option, got %v", catalog.calls)
	}

	newSettings(t, env, map[string]any{KeyPostTypes: []any{"book"}})
	if catalog.calls[KindPostType] != 2 {
		t.Fatalf("expected a fresh option to read the catalog again, got %v", catalog.calls)
	}
}

func TestCatalogListsWithoutCatalogKeepEverything(t *testing.T) {
	o := newSettings(t, Env{}, nil)
	if !o.Set(KeyPostTypes, []any{"anything"}) {
		t.Fatalf("expected list to be stored")
	}
	if got := mustGet(t, o, KeyPostTypes); !reflect.DeepEqual(got, []any{"anything"}) {
		t.Fatalf("expected list unchanged, got %v", got)
	}
}

func TestScalarRules(t *testing.T) {
	env, _, _ := testEnv(t)
	future := time.Now().Add(time.Hour).Unix()
	past := time.Now().Add(-time.Hour).Unix()

	tests := []struct {
		name  string
		key   string
		value any
		ok    bool
		code  string
	}{
		{name: "sync field", key: KeySync, value: []any{"post_date"}, ok: true},
		{name: "unknown sync field", key: KeySync, value: []any{"colour"}, code: "invalid_enum_sync"},
		{name: "existing language", key: KeyDefaultLang, value: "fr", ok: true},
		{name: "missing language", key: KeyDefaultLang, value: "de", code: "invalid_language_default_lang"},
		{name: "slug pattern", key: KeyDefaultLang, value: "EN", code: "pattern_default_lang"},
		{name: "past activation", key: KeyFirstActivation, value: past, ok: true},
		{name: "future activation", key: KeyFirstActivation, value: future, code: "future_timestamp_first_activation"},
		{name: "release version", key: KeyVersion, value: "3.4.1", ok: true},
		{name: "pre-release version", key: KeyPreviousVersion, value: "3.5-beta.2", ok: true},
		{name: "empty version", key: KeyVersion, value: "", ok: true},
		{name: "bad version", key: KeyVersion, value: "three", code: "pattern_version"},
		{name: "menu ids", key: KeyNavMenus, value: map[string]any{"twenty": map[string]any{"primary": map[string]any{"en": 4}}}, ok: true},
		{name: "bad menu id", key: KeyNavMenus, value: map[string]any{"twenty": map[string]any{"primary": map[string]any{"en": "four"}}}, code: "invalid_type_nav_menus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newSettings(t, env, nil)
			ok := o.Set(tt.key, tt.value)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v (%v)", tt.ok, ok, o.Errors(tt.key))
			}
			if tt.code != "" && !o.Errors(tt.key).Has(tt.code) {
				t.Fatalf("expected code %s, got %v", tt.code, o.Errors(tt.key))
			}
		})
	}
}

func TestBoolKeys(t *testing.T) {
	env, _, _ := testEnv(t)
	want := []string{KeyHideDefault, KeyRewrite, KeyRedirectLang, KeyBrowser, KeyMediaSupport}
	if got := DefaultRegistry(env).BoolKeys(); !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
