package activity

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Object types carried by option events.
const (
	ObjectOptions = "options"
	ObjectLayer   = "options.layer"
)

// Event describes an activity occurrence that can be fanned out to hooks.
// IDs are strings so call sites are not tied to a UUID type.
type Event struct {
	Verb           string
	ActorID        string
	UserID         string
	TenantID       string
	ObjectType     string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	OccurredAt     time.Time
}

// Complete reports whether the event names a verb and an object. Incomplete
// events are dropped by Hooks and sinks.
func (e Event) Complete() bool {
	return e.Verb != "" && e.ObjectType != "" && e.ObjectID != ""
}

// ActivityHook receives normalized activity events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []ActivityHook

// Enabled reports whether any non-nil hook is present.
func (h Hooks) Enabled() bool {
	return slices.ContainsFunc(h, func(hook ActivityHook) bool { return hook != nil })
}

// Notify normalizes event and forwards it to every hook. Incomplete events
// are skipped. Hook failures are joined; one failing hook does not stop the
// others.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}
	event = NormalizeEvent(event)
	if !event.Complete() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, event); err != nil {
			errs = errors.Join(errs, fmt.Errorf("activity: %s %s: %w", event.Verb, event.ObjectID, err))
		}
	}
	return errs
}

// NormalizeEvent trims identifiers, copies metadata and recipients, and
// stamps a missing timestamp.
func NormalizeEvent(event Event) Event {
	for _, field := range []*string{
		&event.Verb,
		&event.ActorID,
		&event.UserID,
		&event.TenantID,
		&event.ObjectType,
		&event.ObjectID,
		&event.Channel,
		&event.DefinitionCode,
	} {
		*field = strings.TrimSpace(*field)
	}
	event.Metadata = cloneMap(event.Metadata)
	if len(event.Recipients) == 0 {
		event.Recipients = nil
	} else {
		event.Recipients = slices.Clone(event.Recipients)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	return event
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	return maps.Clone(src)
}
