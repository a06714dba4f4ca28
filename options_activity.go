package opts

import (
	"context"

	"github.com/goliatone/go-langopts/pkg/activity"
)

type eventKind int

const (
	updatedEvent eventKind = iota
	resetEvent
	rejectedEvent
)

// WithActivity routes option lifecycle events through emitter. actor supplies
// the identity and channel fields copied onto every event.
func WithActivity(emitter *activity.Emitter, actor activity.OptionsEventInput) ConfigOption {
	return func(cfg *optionsConfig) {
		cfg.emitter = emitter
		cfg.actor = actor
	}
}

// WithActivityHooks is shorthand for WithActivity with an enabled emitter
// fanning out to hooks.
func WithActivityHooks(hooks activity.Hooks) ConfigOption {
	return WithActivity(activity.NewEmitter(hooks, activity.Config{Enabled: true}), activity.OptionsEventInput{})
}

// ActivityEmitter returns the configured emitter, if any.
func (o *Options) ActivityEmitter() *activity.Emitter {
	if o == nil {
		return nil
	}
	return o.cfg.emitter
}

func (o *Options) emit(ctx context.Context, kind eventKind, key string, oldValue, newValue any, codes []string) {
	emitter := o.cfg.emitter
	if !emitter.Enabled() {
		return
	}
	input := o.cfg.actor
	input.Path = key
	input.OldValue = oldValue
	input.NewValue = newValue
	input.ErrorCodes = codes

	var event activity.Event
	switch kind {
	case resetEvent:
		event = activity.BuildOptionsResetEvent(input)
	case rejectedEvent:
		event = activity.BuildOptionsRejectedEvent(input)
	default:
		event = activity.BuildOptionsUpdatedEvent(input)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := emitter.Emit(ctx, event); err != nil {
		o.cfg.logger.Warn("activity emission failed", "key", key, "verb", event.Verb, "error", err)
	}
}
