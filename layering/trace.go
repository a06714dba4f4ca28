package layering

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// Trace captures provenance for one path across the layers of a stack.
type Trace struct {
	Path   string       `json:"path"`
	Layers []Provenance `json:"layers"`
}

// Provenance details how a specific scope contributed to a traced path.
type Provenance struct {
	Scope      Scope  `json:"scope"`
	SnapshotID string `json:"snapshot_id,omitempty"`
	Path       string `json:"path"`
	Value      any    `json:"value,omitempty"`
	Found      bool   `json:"found"`
}

// Winner returns the strongest layer that holds the path.
func (t Trace) Winner() (Provenance, bool) {
	for _, layer := range t.Layers {
		if layer.Found {
			return layer, true
		}
	}
	return Provenance{}, false
}

// ToJSON serialises the trace for logging or transport.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a payload produced by ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

// Resolve returns the merged value at path together with the provenance of
// every layer. Path segments are separated by dots, e.g. "domains.fr".
func (s *Stack) Resolve(path string) (any, Trace, error) {
	if s.Len() == 0 {
		return nil, Trace{}, ErrEmptyStack
	}
	segments, err := splitPath(path)
	if err != nil {
		return nil, Trace{}, err
	}
	trace := Trace{Path: path, Layers: make([]Provenance, len(s.layers))}
	for i, layer := range s.layers {
		value, found := lookup(layer.Snapshot, segments)
		trace.Layers[i] = Provenance{
			Scope:      layer.Scope.clone(),
			SnapshotID: layer.SnapshotID,
			Path:       path,
			Value:      cloneAny(value),
			Found:      found,
		}
	}
	merged, _ := s.Merge()
	value, _ := lookup(merged, segments)
	return value, trace, nil
}

func splitPath(path string) ([]string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("scope: path must not be empty")
	}
	segments := strings.Split(trimmed, ".")
	for _, segment := range segments {
		if segment == "" {
			return nil, fmt.Errorf("scope: invalid path %q", path)
		}
	}
	return segments, nil
}

func lookup(snapshot Snapshot, segments []string) (any, bool) {
	var current any = snapshot
	for _, segment := range segments {
		fields, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		value, ok := fields[segment]
		if !ok || value == nil {
			return nil, false
		}
		current = value
	}
	return current, true
}
