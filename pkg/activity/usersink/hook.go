// Package usersink forwards design lifecycle events to a go-users
// ActivitySink so wizard sessions show up in the shared activity feed.
package usersink

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-rasdesign/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook bridges activity events into a go-users ActivitySink. Events that
// lack a verb or an object are dropped rather than logged half-formed.
type Hook struct {
	Sink usertypes.ActivitySink
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := activity.NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectType == "" || normalized.ObjectID == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, buildRecord(normalized))
}

func buildRecord(event activity.Event) usertypes.ActivityRecord {
	record := usertypes.ActivityRecord{
		ActorID:    parseUUID(event.ActorID),
		UserID:     parseUUID(event.UserID),
		TenantID:   parseUUID(event.TenantID),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		Data:       recordData(event),
		OccurredAt: event.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}
	return record
}

// recordData folds event metadata, the notification definition, and the
// recipient list into one data map for the sink.
func recordData(event activity.Event) map[string]any {
	size := len(event.Metadata)
	if event.DefinitionCode != "" {
		size++
	}
	if len(event.Recipients) > 0 {
		size++
	}
	if size == 0 {
		return nil
	}

	data := make(map[string]any, size)
	for key, value := range event.Metadata {
		data[key] = value
	}
	if event.DefinitionCode != "" {
		data["definition_code"] = event.DefinitionCode
	}
	if len(event.Recipients) > 0 {
		data["recipients"] = append([]string{}, event.Recipients...)
	}
	return data
}

// parseUUID tolerates non-UUID actor ids, mapping them to uuid.Nil so a
// missing or opaque id never blocks the event.
func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}
