package activity

import (
	"context"
	"testing"
)

func TestBuildOptionsUpdatedEventIncludesScopeMetadata(t *testing.T) {
	meta := map[string]any{"custom": "value"}
	scopeMeta := map[string]any{"site": "fr.example.com"}
	input := OptionsEventInput{
		ActorID:        " actor ",
		UserID:         " user ",
		TenantID:       " tenant ",
		Path:           "hide_default",
		Metadata:       meta,
		Scope:          ScopeContext{Name: "site", Label: "Site", Priority: 50, Metadata: scopeMeta, SnapshotID: "snap-1"},
		OldValue:       false,
		NewValue:       true,
		DefinitionCode: "options:update",
		Recipients:     []string{"admin@example.com"},
		Channel:        "options",
	}

	event := BuildOptionsUpdatedEvent(input)

	if event.Verb != VerbOptionsUpdated {
		t.Fatalf("expected verb options.updated got %s", event.Verb)
	}
	if event.ObjectType != "options" || event.ObjectID != "hide_default" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.ActorID != "actor" || event.UserID != "user" || event.TenantID != "tenant" {
		t.Fatalf("unexpected identity fields: %+v", event)
	}
	if event.Metadata["path"] != "hide_default" {
		t.Fatalf("expected path metadata, got %v", event.Metadata["path"])
	}
	if event.Metadata["scope_name"] != "site" || event.Metadata["scope_priority"] != 50 {
		t.Fatalf("expected scope metadata, got %+v", event.Metadata)
	}
	if event.Metadata["scope_label"] != "Site" {
		t.Fatalf("expected scope_label, got %v", event.Metadata["scope_label"])
	}
	scopeMetadata, ok := event.Metadata["scope_metadata"].(map[string]any)
	if !ok || scopeMetadata["site"] != "fr.example.com" {
		t.Fatalf("expected scope_metadata clone, got %v", event.Metadata["scope_metadata"])
	}
	if event.Metadata["snapshot_id"] != "snap-1" {
		t.Fatalf("expected snapshot_id, got %v", event.Metadata["snapshot_id"])
	}
	if event.Metadata["old_value"] != false || event.Metadata["new_value"] != true {
		t.Fatalf("expected old/new values, got %v %v", event.Metadata["old_value"], event.Metadata["new_value"])
	}
	if len(event.Recipients) != 1 || event.Recipients[0] != "admin@example.com" {
		t.Fatalf("expected recipients preserved, got %v", event.Recipients)
	}
	event.Recipients[0] = "changed"
	if input.Recipients[0] != "admin@example.com" {
		t.Fatalf("expected input recipients untouched, got %v", input.Recipients)
	}
	if meta["custom"] != "value" || scopeMeta["site"] != "fr.example.com" {
		t.Fatalf("expected input metadata untouched")
	}
}

func TestBuildOptionsRejectedEventCarriesErrorCodes(t *testing.T) {
	codes := []string{"invalid_enum_force_lang"}
	event := BuildOptionsRejectedEvent(OptionsEventInput{
		Path:       "force_lang",
		OldValue:   1,
		NewValue:   7,
		ErrorCodes: codes,
	})
	if event.Verb != VerbOptionsRejected {
		t.Fatalf("expected verb options.rejected, got %s", event.Verb)
	}
	got, ok := event.Metadata["error_codes"].([]string)
	if !ok || len(got) != 1 || got[0] != "invalid_enum_force_lang" {
		t.Fatalf("expected error codes metadata, got %v", event.Metadata["error_codes"])
	}
	got[0] = "changed"
	if codes[0] != "invalid_enum_force_lang" {
		t.Fatalf("expected input codes untouched")
	}
}

func TestBuildOptionsResetEventUsesFallbackObjectID(t *testing.T) {
	event := BuildOptionsResetEvent(OptionsEventInput{})
	if event.Verb != VerbOptionsReset {
		t.Fatalf("expected verb options.reset, got %s", event.Verb)
	}
	if event.ObjectID != "options" {
		t.Fatalf("expected fallback object ID 'options', got %q", event.ObjectID)
	}
}

func TestBuildOptionsLayerAppliedEventPrefersSnapshotID(t *testing.T) {
	input := OptionsEventInput{
		Scope: ScopeContext{
			Name:       "site",
			SnapshotID: "snapshot-42",
		},
	}
	event := BuildOptionsLayerAppliedEvent(input)
	if event.Verb != VerbOptionsLayerApplied {
		t.Fatalf("expected verb options.layer.applied got %s", event.Verb)
	}
	if event.ObjectType != "options.layer" || event.ObjectID != "snapshot-42" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.Metadata["snapshot_id"] != "snapshot-42" || event.Metadata["scope_name"] != "site" {
		t.Fatalf("expected scope metadata, got %+v", event.Metadata)
	}
}

func TestBuildOptionsEventsWorkWithHooks(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}

	event := BuildOptionsResetEvent(OptionsEventInput{
		Path:  "nav_menus",
		Scope: ScopeContext{Name: "site", Priority: 100},
	})
	if err := hooks.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected capture to record event, got %d", len(capture.Events))
	}
	if capture.Events[0].Verb != VerbOptionsReset {
		t.Fatalf("expected verb options.reset, got %s", capture.Events[0].Verb)
	}
}
