package state

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	opts "github.com/goliatone/go-langopts"
	"github.com/goliatone/go-langopts/internal/hydrate"
	"github.com/goliatone/go-langopts/layering"
	"github.com/goliatone/go-langopts/pkg/activity"
)

// Registrar builds the options of a domain into a fresh collection, seeding
// each option from stored. settings.Registry satisfies it.
type Registrar interface {
	Register(options *opts.Options, stored layering.Snapshot) error
}

// Mutator applies writes to a hydrated collection.
type Mutator func(*opts.Options) error

// Resolver orchestrates scoped loads, merges them into one snapshot and
// hydrates a fresh Options collection per call.
type Resolver struct {
	Store Store[layering.Snapshot]
	// BoolKeys lists options whose stored form may be 0/1.
	BoolKeys []string
	// Options configure every hydrated collection (logger, evaluator, activity).
	Options []opts.ConfigOption
	Emitter *activity.Emitter
	Actor   activity.OptionsEventInput
	Logger  *slog.Logger
}

func (r Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func (r Resolver) decoder() *hydrate.Decoder {
	return hydrate.NewDecoder(hydrate.NormalizeBools(r.BoolKeys...), hydrate.IntegralNumbers)
}

// Stack loads the snapshot of every scope and returns them as a layering
// stack. Scopes without a stored snapshot are skipped, so the stack may be
// empty.
func (r Resolver) Stack(ctx context.Context, domain string, scopes ...layering.Scope) (*layering.Stack, error) {
	if r.Store == nil {
		return nil, fmt.Errorf("state: store is required")
	}
	if domain == "" {
		return nil, fmt.Errorf("state: domain is required")
	}

	decoder := r.decoder()
	layers := make([]layering.Layer, 0, len(scopes))
	for _, scope := range scopes {
		raw, meta, ok, err := r.Store.Load(ctx, Ref{Domain: domain, Scope: scope})
		if err != nil {
			return nil, fmt.Errorf("state: load %q for scope %q: %w", domain, scope.Name, err)
		}
		if !ok {
			continue
		}
		snapshot, err := decoder.Decode(hydrate.Context{Domain: domain, Scope: scope.Name}, raw)
		if err != nil {
			return nil, fmt.Errorf("state: %w", err)
		}
		layers = append(layers, layering.NewLayer(scope, snapshot, layering.WithSnapshotID(meta.SnapshotID)))
	}

	stack, err := layering.NewStack(layers...)
	if err != nil {
		return nil, fmt.Errorf("state: stack: %w", err)
	}
	return stack, nil
}

// Hydrate merges the stored layers of domain and registers a fresh
// collection through registry. Options missing from every layer start at
// their defaults.
func (r Resolver) Hydrate(ctx context.Context, domain string, registry Registrar, scopes ...layering.Scope) (*opts.Options, error) {
	if registry == nil {
		return nil, fmt.Errorf("state: registry is required")
	}
	stack, err := r.Stack(ctx, domain, scopes...)
	if err != nil {
		return nil, err
	}
	var stored layering.Snapshot
	if stack.Len() > 0 {
		if stored, err = stack.Merge(); err != nil {
			return nil, fmt.Errorf("state: merge %q: %w", domain, err)
		}
	}

	options := opts.New(r.Options...)
	if err := registry.Register(options, stored); err != nil {
		return nil, fmt.Errorf("state: register %q: %w", domain, err)
	}
	if options.HasBlockingErrors() {
		r.logger().Warn("stored values fell back to defaults", "domain", domain, "codes", options.AllErrors().Codes())
	}
	r.logger().Debug("options hydrated", "domain", domain, "layers", stack.Len(), "options", options.Len())
	return options, nil
}

// Save persists the committed values of options under ref. A non-empty
// meta.ETag must match the stored ETag.
func (r Resolver) Save(ctx context.Context, ref Ref, options *opts.Options, meta Meta) (Meta, error) {
	if err := r.checkRef(ref); err != nil {
		return Meta{}, err
	}
	if options == nil {
		return Meta{}, fmt.Errorf("state: options are required")
	}
	_, loaded, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("state: load %q for scope %q: %w", ref.Domain, ref.Scope.Name, err)
	}
	if ok {
		if err := checkETag(meta, loaded); err != nil {
			return loaded, err
		}
	}
	return r.save(ctx, ref, options.Snapshot(), nextMeta(loaded, meta))
}

// Mutate hydrates the single snapshot stored under ref, applies fn and saves
// the result. When a write made by fn is blocked nothing is saved and the
// error wraps ErrRejected. Stored values rejected while hydrating do not
// block the save; they are replaced by their defaults.
func (r Resolver) Mutate(ctx context.Context, ref Ref, registry Registrar, meta Meta, fn Mutator) (*opts.Options, Meta, error) {
	if err := r.checkRef(ref); err != nil {
		return nil, Meta{}, err
	}
	if fn == nil {
		return nil, Meta{}, fmt.Errorf("state: mutator is required")
	}

	_, loaded, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: load %q for scope %q: %w", ref.Domain, ref.Scope.Name, err)
	}
	if ok {
		if err := checkETag(meta, loaded); err != nil {
			return nil, loaded, err
		}
	}

	options, err := r.Hydrate(ctx, ref.Domain, registry, ref.Scope)
	if err != nil {
		return nil, loaded, err
	}
	if err := fn(options); err != nil {
		return options, loaded, err
	}
	if errs := options.WriteErrors(); errs.HasBlocking() {
		return options, loaded, fmt.Errorf("%w: %s", ErrRejected, strings.Join(errs.Codes(), ", "))
	}

	saved, err := r.save(ctx, ref, options.Snapshot(), nextMeta(loaded, meta))
	if err != nil {
		return options, loaded, err
	}
	return options, saved, nil
}

func (r Resolver) save(ctx context.Context, ref Ref, snapshot layering.Snapshot, meta Meta) (Meta, error) {
	saved, err := r.Store.Save(ctx, ref, snapshot, meta)
	if err != nil {
		return Meta{}, fmt.Errorf("state: save %q for scope %q: %w", ref.Domain, ref.Scope.Name, err)
	}
	r.logger().Debug("options saved", "domain", ref.Domain, "scope", ref.Scope.Name, "snapshot_id", saved.SnapshotID)
	r.emitLayerApplied(ctx, ref, saved)
	return saved, nil
}

func (r Resolver) emitLayerApplied(ctx context.Context, ref Ref, saved Meta) {
	if !r.Emitter.Enabled() {
		return
	}
	input := r.Actor
	input.Path = ref.Domain
	input.Scope = activity.ScopeContext{
		Name:       ref.Scope.Name,
		Label:      ref.Scope.Label,
		Priority:   ref.Scope.Priority,
		Metadata:   ref.Scope.Metadata,
		SnapshotID: saved.SnapshotID,
	}
	if id, err := ref.Identifier(); err == nil {
		input.ObjectID = id
	}
	if err := r.Emitter.Emit(ctx, activity.BuildOptionsLayerAppliedEvent(input)); err != nil {
		r.logger().Warn("activity emission failed", "domain", ref.Domain, "error", err)
	}
}

func (r Resolver) checkRef(ref Ref) error {
	if r.Store == nil {
		return fmt.Errorf("state: store is required")
	}
	if ref.Domain == "" {
		return fmt.Errorf("state: domain is required")
	}
	if ref.Scope.Name == "" {
		return fmt.Errorf("state: scope name is required")
	}
	return nil
}

func checkETag(expected, loaded Meta) error {
	if expected.ETag != "" && loaded.ETag != "" && expected.ETag != loaded.ETag {
		return fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, expected.ETag, loaded.ETag)
	}
	return nil
}

// nextMeta carries Extra forward from the stored record; SnapshotID and
// ETag are assigned by the store.
func nextMeta(loaded, override Meta) Meta {
	out := Meta{
		SnapshotID: override.SnapshotID,
		UpdatedAt:  override.UpdatedAt,
		Extra:      loaded.Extra,
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return cloneMeta(out)
}
