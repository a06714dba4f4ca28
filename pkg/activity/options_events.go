package activity

import (
	"strings"
	"time"
)

// ScopeContext captures the layer an options snapshot was loaded from.
type ScopeContext struct {
	Name       string
	Label      string
	Priority   int
	Metadata   map[string]any
	SnapshotID string
}

// OptionsEventInput describes the common fields for options lifecycle events.
type OptionsEventInput struct {
	ActorID        string
	UserID         string
	TenantID       string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	Path           string
	OldValue       any
	NewValue       any
	ErrorCodes     []string
	Scope          ScopeContext
	OccurredAt     time.Time
}

// Option lifecycle verbs.
const (
	VerbOptionsUpdated      = "options.updated"
	VerbOptionsReset        = "options.reset"
	VerbOptionsRejected     = "options.rejected"
	VerbOptionsLayerApplied = "options.layer.applied"
)

// BuildOptionsUpdatedEvent constructs an event for a committed option write.
func BuildOptionsUpdatedEvent(input OptionsEventInput) Event {
	return buildOptionsEvent(VerbOptionsUpdated, ObjectOptions, input)
}

// BuildOptionsResetEvent constructs an event for an option restored to its default.
func BuildOptionsResetEvent(input OptionsEventInput) Event {
	return buildOptionsEvent(VerbOptionsReset, ObjectOptions, input)
}

// BuildOptionsRejectedEvent constructs an event for a write discarded by a
// blocking error.
func BuildOptionsRejectedEvent(input OptionsEventInput) Event {
	return buildOptionsEvent(VerbOptionsRejected, ObjectOptions, input)
}

// BuildOptionsLayerAppliedEvent constructs an activity event describing a layer application.
func BuildOptionsLayerAppliedEvent(input OptionsEventInput) Event {
	return buildOptionsEvent(VerbOptionsLayerApplied, ObjectLayer, input)
}

func buildOptionsEvent(verb, objectType string, input OptionsEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Path != "" {
		metadata = ensureMetadata(metadata)
		metadata["path"] = input.Path
	}
	if input.Scope.Name != "" {
		metadata = ensureMetadata(metadata)
		metadata["scope_name"] = input.Scope.Name
		metadata["scope_priority"] = input.Scope.Priority
		if input.Scope.Label != "" {
			metadata["scope_label"] = input.Scope.Label
		}
		if len(input.Scope.Metadata) > 0 {
			metadata["scope_metadata"] = cloneMap(input.Scope.Metadata)
		}
	}
	if input.Scope.SnapshotID != "" {
		metadata = ensureMetadata(metadata)
		metadata["snapshot_id"] = input.Scope.SnapshotID
	}
	if input.OldValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["new_value"] = input.NewValue
	}
	if len(input.ErrorCodes) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["error_codes"] = append([]string{}, input.ErrorCodes...)
	}

	recipients := input.Recipients
	if len(recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectID := strings.TrimSpace(input.ObjectID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Path)
	}
	if objectID == "" {
		objectID = strings.TrimSpace(input.Scope.SnapshotID)
	}
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:           verb,
		ActorID:        strings.TrimSpace(input.ActorID),
		UserID:         strings.TrimSpace(input.UserID),
		TenantID:       strings.TrimSpace(input.TenantID),
		ObjectType:     objectType,
		ObjectID:       objectID,
		Channel:        strings.TrimSpace(input.Channel),
		DefinitionCode: strings.TrimSpace(input.DefinitionCode),
		Recipients:     recipients,
		Metadata:       metadata,
		OccurredAt:     input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
