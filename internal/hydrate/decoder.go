// Package hydrate turns stored option payloads into snapshots the option
// pipeline can seed from.
package hydrate

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-langopts/layering"
)

// Context identifies the stored snapshot being decoded.
type Context struct {
	Domain string
	Scope  string
}

func (c Context) String() string {
	if c.Scope == "" {
		return c.Domain
	}
	return c.Scope + "/" + c.Domain
}

// Hook rewrites a decoded snapshot in place or returns a replacement.
// Returning a nil snapshot keeps the current one.
type Hook func(Context, layering.Snapshot) (layering.Snapshot, error)

// Decoder detaches a stored payload from its source through a JSON round
// trip, then runs hooks in order. Numbers come out of the round trip as
// float64; IntegralNumbers restores whole values.
type Decoder struct {
	hooks []Hook
}

// NewDecoder returns a decoder running hooks in order. Nil hooks are skipped.
func NewDecoder(hooks ...Hook) *Decoder {
	d := &Decoder{}
	for _, hook := range hooks {
		if hook != nil {
			d.hooks = append(d.hooks, hook)
		}
	}
	return d
}

// Decode never mutates payload. A nil payload decodes to an empty snapshot.
func (d *Decoder) Decode(ctx Context, payload map[string]any) (layering.Snapshot, error) {
	snapshot := layering.Snapshot{}
	if payload != nil {
		buffer, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("hydrate: encode %s: %w", ctx, err)
		}
		if err := json.Unmarshal(buffer, &snapshot); err != nil {
			return nil, fmt.Errorf("hydrate: decode %s: %w", ctx, err)
		}
	}

	for i, hook := range d.hooks {
		next, err := hook(ctx, snapshot)
		if err != nil {
			return nil, fmt.Errorf("hydrate: hook %d for %s: %w", i, ctx, err)
		}
		if next != nil {
			snapshot = next
		}
	}
	return snapshot, nil
}
