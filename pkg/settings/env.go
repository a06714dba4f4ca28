package settings

import (
	"slices"

	opts "github.com/goliatone/go-langopts"
)

// FlagLanguageFromContent lets force_lang take 0: the language is set from
// the content rather than from the URL.
const FlagLanguageFromContent = "language_from_content"

// Flags reports feature flags owned by the host.
type Flags interface {
	Enabled(name string) bool
}

// StaticFlags is a fixed flag set.
type StaticFlags map[string]bool

// Enabled implements Flags.
func (f StaticFlags) Enabled(name string) bool {
	return f[name]
}

// NewStaticFlags enables names.
func NewStaticFlags(names ...string) StaticFlags {
	out := make(StaticFlags, len(names))
	for _, name := range names {
		out[name] = true
	}
	return out
}

// Languages is the set of languages options can refer to.
// *language.Catalog satisfies it.
type Languages interface {
	Slugs() []string
	Has(slug string) bool
}

// ObjectKind names a family of registered object types.
type ObjectKind string

const (
	KindPostType         ObjectKind = "post_type"
	KindTaxonomy         ObjectKind = "taxonomy"
	KindLanguageTaxonomy ObjectKind = "language_taxonomy"
)

// Catalog lists the object types currently registered by the host.
type Catalog interface {
	Types(kind ObjectKind) []string
}

// StaticCatalog is a fixed Catalog.
type StaticCatalog map[ObjectKind][]string

// Types implements Catalog.
func (c StaticCatalog) Types(kind ObjectKind) []string {
	return slices.Clone(c[kind])
}

// Env holds the collaborators business options consult. Every field is
// optional: without Flags no flag is on, without Languages no language
// exists and without a Catalog list options keep every entry.
type Env struct {
	Flags     Flags
	Languages Languages
	Catalog   Catalog
	// Functions and Cache back the expr evaluator running the option rules.
	Functions *opts.FunctionRegistry
	Cache     opts.ProgramCache
}

func (e Env) flag(name string) bool {
	return e.Flags != nil && e.Flags.Enabled(name)
}

func (e Env) slugs() []string {
	if e.Languages == nil {
		return nil
	}
	return e.Languages.Slugs()
}

func (e Env) hasLanguage(slug string) bool {
	return e.Languages != nil && e.Languages.Has(slug)
}

// ruleEvaluator evaluates the rule expressions, which use expr syntax.
func (e Env) ruleEvaluator() opts.Evaluator {
	return opts.NewExprEvaluator(
		opts.EvaluatorWithFunctions(e.Functions),
		opts.EvaluatorWithProgramCache(e.Cache),
	)
}
