// Package usersink forwards option activity to a go-users ActivitySink.
package usersink

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/goliatone/go-langopts/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Data keys added to every record beside the event metadata.
const (
	DataDefinitionCode = "definition_code"
	DataRecipients     = "recipients"
)

// Hook adapts activity events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
}

// Notify forwards the record built from event. Incomplete events are
// dropped.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	record, ok := Record(event)
	if !ok {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, record)
}

// Record maps event onto an ActivityRecord. Identifiers that are not UUIDs
// map to uuid.Nil. ok is false for incomplete events.
func Record(event activity.Event) (record usertypes.ActivityRecord, ok bool) {
	event = activity.NormalizeEvent(event)
	if !event.Complete() {
		return usertypes.ActivityRecord{}, false
	}

	data := maps.Clone(event.Metadata)
	if event.DefinitionCode != "" || len(event.Recipients) > 0 {
		if data == nil {
			data = map[string]any{}
		}
		if event.DefinitionCode != "" {
			data[DataDefinitionCode] = event.DefinitionCode
		}
		if len(event.Recipients) > 0 {
			data[DataRecipients] = slices.Clone(event.Recipients)
		}
	}

	return usertypes.ActivityRecord{
		ActorID:    parseUUID(event.ActorID),
		UserID:     parseUUID(event.UserID),
		TenantID:   parseUUID(event.TenantID),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		Data:       data,
		OccurredAt: event.OccurredAt,
	}, true
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}
