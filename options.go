package opts

import (
	"context"
	"fmt"
	"slices"

	"github.com/invopop/jsonschema"
)

// Options is an ordered collection of options. Registration order is
// significant: an option's pipeline only sees options registered before it.
type Options struct {
	cfg     optionsConfig
	order   []string
	options map[string]Option
	index   map[string]int
	written map[string]struct{}
}

// New constructs an empty collection.
func New(opts ...ConfigOption) *Options {
	return &Options{
		cfg:     applyOptions(opts),
		options: make(map[string]Option),
		index:   make(map[string]int),
		written: make(map[string]struct{}),
	}
}

// Register appends option to the collection.
func (o *Options) Register(option Option) error {
	if option == nil {
		return ErrNilOption
	}
	key := option.Key()
	if key == "" {
		return ErrOptionKeyRequired
	}
	if _, exists := o.options[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateOption, key)
	}
	o.index[key] = len(o.order)
	o.order = append(o.order, key)
	o.options[key] = option
	o.cfg.logger.Debug("option registered", "key", key, "position", o.index[key])
	return nil
}

// Reader exposes every option registered so far. Values registered later are
// not visible through a Reader obtained earlier.
func (o *Options) Reader() Reader {
	return scopedReader{options: o, limit: len(o.order)}
}

func (o *Options) readerFor(key string) Reader {
	return scopedReader{options: o, limit: o.index[key]}
}

// Option returns the registered option for key.
func (o *Options) Option(key string) (Option, bool) {
	option, ok := o.options[key]
	return option, ok
}

// Keys returns the option keys in registration order.
func (o *Options) Keys() []string {
	return slices.Clone(o.order)
}

// Len returns the number of registered options.
func (o *Options) Len() int {
	return len(o.order)
}

// Get returns the current value for key. Unknown keys report false.
func (o *Options) Get(key string) (any, bool) {
	option, ok := o.options[key]
	if !ok {
		return nil, false
	}
	return option.Get(), true
}

// Set writes value through the option's pipeline. Unknown keys are refused.
func (o *Options) Set(key string, value any) bool {
	return o.SetContext(context.Background(), key, value)
}

// SetContext is Set with a context forwarded to activity hooks.
func (o *Options) SetContext(ctx context.Context, key string, value any) bool {
	option, ok := o.options[key]
	if !ok {
		o.cfg.logger.Debug("set on unknown option", "key", key)
		return false
	}
	previous := option.Get()
	accepted := option.Set(value, o.readerFor(key))
	o.recordWrite(ctx, option, previous, value, accepted)
	return accepted
}

// Apply runs key's pipeline against value without committing it.
func (o *Options) Apply(key string, value any) (Result, bool) {
	option, ok := o.options[key]
	if !ok {
		return Result{}, false
	}
	return option.Apply(value, o.readerFor(key)), true
}

// Add merges item into a map option.
func (o *Options) Add(key string, item any) bool {
	return o.AddContext(context.Background(), key, item)
}

// AddContext is Add with a context forwarded to activity hooks.
func (o *Options) AddContext(ctx context.Context, key string, item any) bool {
	option, ok := o.mergeable(key)
	if !ok {
		return false
	}
	previous := option.Get()
	accepted := option.Add(item, o.readerFor(key))
	o.recordWrite(ctx, option, previous, item, accepted)
	return accepted
}

// Remove resets one entry of a map option, keeping the entry's key.
func (o *Options) Remove(key, entry string) bool {
	return o.RemoveContext(context.Background(), key, entry)
}

// RemoveContext is Remove with a context forwarded to activity hooks.
func (o *Options) RemoveContext(ctx context.Context, key, entry string) bool {
	option, ok := o.mergeable(key)
	if !ok {
		return false
	}
	previous := option.Get()
	if !option.Remove(entry) {
		return false
	}
	o.recordWrite(ctx, option, previous, option.Get(), true)
	return true
}

// Reset restores key to its default value.
func (o *Options) Reset(key string) bool {
	return o.ResetContext(context.Background(), key)
}

// ResetContext is Reset with a context forwarded to activity hooks.
func (o *Options) ResetContext(ctx context.Context, key string) bool {
	option, ok := o.options[key]
	if !ok {
		return false
	}
	previous := option.Get()
	option.Reset()
	o.written[key] = struct{}{}
	o.cfg.logger.Debug("option reset", "key", key)
	o.emit(ctx, resetEvent, key, previous, option.Get(), nil)
	return true
}

// Errors returns the diagnostics of key's most recent write.
func (o *Options) Errors(key string) Errors {
	option, ok := o.options[key]
	if !ok {
		return nil
	}
	return option.Errors()
}

// AllErrors aggregates every option's diagnostics in registration order.
// Codes are namespaced per option so aggregation never merges failures.
func (o *Options) AllErrors() Errors {
	var out Errors
	for _, key := range o.order {
		out = append(out, o.options[key].Errors()...)
	}
	return out
}

// WriteErrors aggregates, in registration order, the diagnostics of the
// options written through the collection. Errors recorded while an option was
// seeded at registration are left out until the option is written.
func (o *Options) WriteErrors() Errors {
	var out Errors
	for _, key := range o.order {
		if _, ok := o.written[key]; ok {
			out = append(out, o.options[key].Errors()...)
		}
	}
	return out
}

// HasBlockingErrors reports whether any option's last write was blocked.
func (o *Options) HasBlockingErrors() bool {
	for _, key := range o.order {
		if o.options[key].HasBlockingErrors() {
			return true
		}
	}
	return false
}

// Snapshot copies every current value keyed by option key.
func (o *Options) Snapshot() map[string]any {
	out := make(map[string]any, len(o.order))
	for _, key := range o.order {
		out[key] = o.options[key].Get()
	}
	return out
}

// ObjectSchema describes the whole collection as one object whose properties
// are the option schemas in registration order.
func (o *Options) ObjectSchema() *jsonschema.Schema {
	properties := jsonschema.NewProperties()
	for _, key := range o.order {
		properties.Set(key, o.options[key].Schema())
	}
	return &jsonschema.Schema{
		Version:              jsonschema.Version,
		Type:                 "object",
		Properties:           properties,
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

// Schema renders the collection with the configured generator.
func (o *Options) Schema() (SchemaDocument, error) {
	return o.schemaGenerator().Generate(o)
}

func (o *Options) mergeable(key string) (Mergeable, bool) {
	option, ok := o.options[key]
	if !ok {
		return nil, false
	}
	merger, ok := option.(Mergeable)
	if !ok {
		o.cfg.logger.Debug("option does not support partial updates", "key", key)
	}
	return merger, ok
}

func (o *Options) recordWrite(ctx context.Context, option Option, previous, attempted any, accepted bool) {
	key := option.Key()
	o.written[key] = struct{}{}
	errs := option.Errors()
	if !accepted {
		o.cfg.logger.Debug("option rejected", "key", key, "codes", errs.Codes())
		o.emit(ctx, rejectedEvent, key, previous, attempted, errs.Codes())
		return
	}
	if len(errs) > 0 {
		o.cfg.logger.Debug("option committed with warnings", "key", key, "codes", errs.Codes())
	} else {
		o.cfg.logger.Debug("option committed", "key", key)
	}
	o.emit(ctx, updatedEvent, key, previous, option.Get(), errs.Codes())
}

type scopedReader struct {
	options *Options
	limit   int
}

func (r scopedReader) Get(key string) (any, bool) {
	position, ok := r.options.index[key]
	if !ok || position >= r.limit {
		return nil, false
	}
	return r.options.options[key].Get(), true
}

func (r scopedReader) Keys() []string {
	limit := min(r.limit, len(r.options.order))
	return slices.Clone(r.options.order[:limit])
}
