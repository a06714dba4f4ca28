package settings

import (
	"errors"
	"fmt"

	opts "github.com/goliatone/go-langopts"
)

// ErrMissingDependency reports an entry declared before an option it reads.
var ErrMissingDependency = errors.New("settings: missing dependency")

// Factory builds one option hydrated with raw. deps exposes the options
// registered before it.
type Factory func(raw any, deps opts.Reader) opts.Option

// Entry declares one option of a Registry.
type Entry struct {
	Key string
	// Requires lists option keys the option's rules read; they must be
	// declared earlier.
	Requires []string
	Factory  Factory
}

// Registry is the ordered declaration of the options of a domain.
type Registry struct {
	Entries []Entry
}

// Register builds every entry into options, in declaration order, seeding
// each option from stored. Stored values the pipeline rejects leave the
// option at its default with the rejection recorded on the option.
func (r Registry) Register(options *opts.Options, stored map[string]any) error {
	if options == nil {
		return fmt.Errorf("settings: options are required")
	}
	for _, entry := range r.Entries {
		if entry.Factory == nil {
			return fmt.Errorf("settings: entry %q has no factory", entry.Key)
		}
		for _, dep := range entry.Requires {
			if _, ok := options.Option(dep); !ok {
				return fmt.Errorf("%w: %s requires %s", ErrMissingDependency, entry.Key, dep)
			}
		}
		option := entry.Factory(stored[entry.Key], options.Reader())
		if option == nil || option.Key() != entry.Key {
			return fmt.Errorf("settings: entry %q built a different option", entry.Key)
		}
		if err := options.Register(option); err != nil {
			return fmt.Errorf("settings: %w", err)
		}
	}
	return nil
}

// Keys returns the declared keys in order.
func (r Registry) Keys() []string {
	keys := make([]string, len(r.Entries))
	for i, entry := range r.Entries {
		keys[i] = entry.Key
	}
	return keys
}

// BoolKeys returns the keys of boolean options. Stores may persist those
// as 0/1.
func (r Registry) BoolKeys() []string {
	var keys []string
	deps := opts.MapReader{}
	for _, entry := range r.Entries {
		if entry.Factory == nil {
			continue
		}
		if _, ok := entry.Factory(nil, deps).Default().(bool); ok {
			keys = append(keys, entry.Key)
		}
	}
	return keys
}

// DefaultRegistry declares the language settings. force_lang comes first
// since domains, hide_default and browser read it.
func DefaultRegistry(env Env) Registry {
	return Registry{Entries: []Entry{
		option(KeyForceLang, forceLang(env)),
		mapOption(KeyDomains, domains(env), func(string) any { return "" }, KeyForceLang),
		option(KeyHideDefault, hideDefault(), KeyForceLang),
		option(KeyRewrite, rewrite()),
		option(KeyRedirectLang, opts.BooleanDefinition(KeyRedirectLang, "Redirect the home page to the language page.")),
		option(KeyBrowser, browser(), KeyForceLang),
		option(KeyMediaSupport, opts.BooleanDefinition(KeyMediaSupport, "Translate media.")),
		catalogOption(env, KeyPostTypes, "Custom post types to translate.", KindPostType),
		catalogOption(env, KeyTaxonomies, "Custom taxonomies to translate.", KindTaxonomy),
		catalogOption(env, KeyLanguageTaxonomies, "Taxonomies filtered by language.", KindLanguageTaxonomy),
		option(KeySync, syncFields()),
		mapOption(KeyNavMenus, navMenus(), func(string) any { return map[string]any{} }),
		option(KeyDefaultLang, defaultLang(env)),
		option(KeyFirstActivation, firstActivation(env)),
		option(KeyVersion, version(KeyVersion, "Installed version.")),
		option(KeyPreviousVersion, version(KeyPreviousVersion, "Version installed before the last upgrade.")),
	}}
}

func option(key string, def opts.Definition, requires ...string) Entry {
	return Entry{
		Key:      key,
		Requires: requires,
		Factory: func(raw any, deps opts.Reader) opts.Option {
			return opts.NewOption(def, raw, deps)
		},
	}
}

func mapOption(key string, def opts.Definition, resetValue func(string) any, requires ...string) Entry {
	return Entry{
		Key:      key,
		Requires: requires,
		Factory: func(raw any, deps opts.Reader) opts.Option {
			return opts.NewMap(def, resetValue, raw, deps)
		},
	}
}

// catalogOption builds the definition per option so each instance reads the
// catalog once.
func catalogOption(env Env, key, description string, kind ObjectKind) Entry {
	return Entry{
		Key: key,
		Factory: func(raw any, deps opts.Reader) opts.Option {
			return opts.NewOption(catalogList(env, key, description, kind), raw, deps)
		},
	}
}
