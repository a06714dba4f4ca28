package settings

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"

	opts "github.com/goliatone/go-langopts"
	"github.com/goliatone/go-langopts/validate"
)

// Option keys.
const (
	KeyForceLang          = "force_lang"
	KeyDomains            = "domains"
	KeyHideDefault        = "hide_default"
	KeyRewrite            = "rewrite"
	KeyRedirectLang       = "redirect_lang"
	KeyBrowser            = "browser"
	KeyMediaSupport       = "media_support"
	KeyPostTypes          = "post_types"
	KeyTaxonomies         = "taxonomies"
	KeyLanguageTaxonomies = "language_taxonomies"
	KeySync               = "sync"
	KeyNavMenus           = "nav_menus"
	KeyDefaultLang        = "default_lang"
	KeyFirstActivation    = "first_activation"
	KeyVersion            = "version"
	KeyPreviousVersion    = "previous_version"
)

// force_lang modes.
const (
	ForceLangContent   = 0
	ForceLangDirectory = 1
	ForceLangSubdomain = 2
	ForceLangDomains   = 3
)

// Codes recorded by business rules, before namespacing with the option key.
const (
	CodeForced          = "forced"
	CodeUnknown         = "unknown"
	CodeEmpty           = "empty"
	CodeInvalidLanguage = "invalid_language"
	CodeFutureTimestamp = "future_timestamp"
)

// SyncFields lists the post fields that can be synchronized across
// translations.
var SyncFields = []string{
	"taxonomies",
	"post_meta",
	"comment_status",
	"ping_status",
	"sticky_posts",
	"post_date",
	"post_format",
	"post_parent",
	"_wp_page_template",
	"menu_order",
	"_thumbnail_id",
}

const (
	slugPattern    = `^[a-z0-9_-]*$`
	versionPattern = `^((\d+\.)*\d+(-[\w.]+)?)?$`
)

func forceLang(env Env) opts.Definition {
	def := opts.IntegerDefinition(KeyForceLang, "Determines how the current language is defined.")
	def.Default = ForceLangDirectory
	def.Schema = func() *jsonschema.Schema {
		enum := []any{ForceLangDirectory, ForceLangSubdomain, ForceLangDomains}
		if env.flag(FlagLanguageFromContent) {
			enum = append([]any{ForceLangContent}, enum...)
		}
		return &jsonschema.Schema{Type: "integer", Enum: enum}
	}
	def.SchemaKey = func() string {
		return fmt.Sprintf("%s=%t", FlagLanguageFromContent, env.flag(FlagLanguageFromContent))
	}
	return def
}

func domains(env Env) opts.Definition {
	def := opts.MapDefinition(KeyDomains, "Domains used when the language is set from different domains.", func() *jsonschema.Schema {
		props := jsonschema.NewProperties()
		for _, slug := range env.slugs() {
			props.Set(slug, &jsonschema.Schema{Type: "string", Format: "uri"})
		}
		return &jsonschema.Schema{Type: "object", Properties: props}
	})
	def.SchemaKey = func() string {
		return strings.Join(env.slugs(), ",")
	}
	def.Refine = func(next opts.Sanitizer) opts.Sanitizer {
		return func(value any, deps opts.Reader, report *opts.Report) any {
			out := next(value, deps, report)
			fields, ok := validate.AsMap(out)
			if !ok {
				return out
			}

			slugs := env.slugs()
			urls := make(map[string]any, len(slugs))
			var missing []string
			for _, slug := range slugs {
				url, _ := fields[slug].(string)
				url = strings.TrimRight(strings.TrimSpace(url), "/")
				urls[slug] = url
				if url == "" {
					missing = append(missing, slug)
				}
			}

			var unknown []string
			for key := range fields {
				if _, ok := urls[key]; !ok {
					unknown = append(unknown, key)
				}
			}
			if len(unknown) > 0 {
				slices.Sort(unknown)
				report.Warn(
					opts.NamespacedCode(CodeUnknown, report.Key()),
					fmt.Sprintf("Ignored domains for unknown languages: %s.", strings.Join(unknown, ", ")),
					map[string]any{"languages": unknown},
				)
			}

			if intValue(deps, KeyForceLang) == ForceLangDomains && len(missing) > 0 {
				report.Block(
					opts.NamespacedCode(CodeEmpty, report.Key()),
					fmt.Sprintf("Please enter a valid URL for %s.", strings.Join(missing, ", ")),
				)
			}
			return urls
		}
	}
	return def
}

// forcedOffWithDomains forces a boolean option off while force_lang selects
// separate domains. The rest of the pipeline is skipped.
func forcedOffWithDomains(def opts.Definition) opts.Definition {
	def.Refine = func(next opts.Sanitizer) opts.Sanitizer {
		return func(value any, deps opts.Reader, report *opts.Report) any {
			if intValue(deps, KeyForceLang) != ForceLangDomains {
				return next(value, deps, report)
			}
			if on, _ := validate.Bool(value); on {
				report.Warn(
					opts.NamespacedCode(CodeForced, report.Key()),
					fmt.Sprintf("%s is always off when languages use separate domains.", report.Key()),
					map[string]any{KeyForceLang: ForceLangDomains},
				)
			}
			return false
		}
	}
	return def
}

func hideDefault() opts.Definition {
	return forcedOffWithDomains(opts.BooleanDefinition(KeyHideDefault, "Hide the language code in URLs for the default language."))
}

func browser() opts.Definition {
	return forcedOffWithDomains(opts.BooleanDefinition(KeyBrowser, "Detect the preferred language from the browser."))
}

func rewrite() opts.Definition {
	def := opts.BooleanDefinition(KeyRewrite, "Remove /language/ from pretty permalinks.")
	def.Default = true
	return def
}

// catalogList keeps only the entries the catalog currently registers for
// kind. The catalog is read at most once per definition.
func catalogList(env Env, key, description string, kind ObjectKind) opts.Definition {
	def := opts.ListDefinition(key, description, nil)
	if env.Catalog == nil {
		return def
	}
	known := sync.OnceValue(func() []string {
		return env.Catalog.Types(kind)
	})
	def.Refine = func(next opts.Sanitizer) opts.Sanitizer {
		return func(value any, deps opts.Reader, report *opts.Report) any {
			out := next(value, deps, report)
			items, ok := validate.AsSlice(out)
			if !ok {
				return out
			}
			allowed := known()
			kept := make([]any, 0, len(items))
			var dropped []any
			for _, item := range items {
				if name, _ := item.(string); slices.Contains(allowed, name) {
					kept = append(kept, item)
					continue
				}
				dropped = append(dropped, item)
			}
			if len(dropped) > 0 {
				report.Warn(
					opts.NamespacedCode(CodeUnknown, report.Key()),
					fmt.Sprintf("Ignored %d unregistered %s.", len(dropped), kind),
					map[string]any{"dropped": dropped},
				)
			}
			return kept
		}
	}
	return def
}

func syncFields() opts.Definition {
	enum := make([]any, len(SyncFields))
	for i, field := range SyncFields {
		enum[i] = field
	}
	return opts.ListDefinition(KeySync, "Data synchronized across translations.", &jsonschema.Schema{Type: "string", Enum: enum})
}

func navMenus() opts.Definition {
	return opts.MapDefinition(KeyNavMenus, "Navigation menus per theme, location and language.", func() *jsonschema.Schema {
		menuIDs := &jsonschema.Schema{Type: "object", AdditionalProperties: &jsonschema.Schema{Type: "integer"}}
		locations := &jsonschema.Schema{Type: "object", AdditionalProperties: menuIDs}
		return &jsonschema.Schema{Type: "object", AdditionalProperties: locations}
	})
}

func defaultLang(env Env) opts.Definition {
	def := opts.StringDefinition(KeyDefaultLang, "Slug of the default language.")
	def.Schema = func() *jsonschema.Schema {
		return &jsonschema.Schema{Type: "string", Pattern: slugPattern}
	}
	def.Refine = func(next opts.Sanitizer) opts.Sanitizer {
		return func(value any, deps opts.Reader, report *opts.Report) any {
			out := next(value, deps, report)
			if slug, _ := out.(string); slug != "" && !env.hasLanguage(slug) {
				report.Block(
					opts.NamespacedCode(CodeInvalidLanguage, report.Key()),
					fmt.Sprintf("The language %s does not exist.", slug),
				)
			}
			return out
		}
	}
	return def
}

func firstActivation(env Env) opts.Definition {
	def := opts.IntegerDefinition(KeyFirstActivation, "Unix timestamp of the first activation.")
	def.Refine = opts.RuleRefinement(
		env.ruleEvaluator(),
		"value <= now.Unix()",
		CodeFutureTimestamp,
		"The first activation cannot be in the future.",
	)
	return def
}

func version(key, description string) opts.Definition {
	def := opts.StringDefinition(key, description)
	def.Schema = func() *jsonschema.Schema {
		return &jsonschema.Schema{Type: "string", Pattern: versionPattern}
	}
	return def
}

// intValue reads an integer option through deps; absent or non-numeric
// values read as -1.
func intValue(deps opts.Reader, key string) int {
	if deps == nil {
		return -1
	}
	value, ok := deps.Get(key)
	if !ok {
		return -1
	}
	switch typed := value.(type) {
	case int:
		return typed
	case int64:
		return int(typed)
	case float64:
		return int(typed)
	default:
		return -1
	}
}
