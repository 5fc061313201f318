package activity

import (
	"strings"
	"time"
)

// StageContext captures the pipeline position an event happened at.
type StageContext struct {
	ID       string
	Label    string
	Ordinal  int
	Metadata map[string]any
}

// DesignEventInput describes the common fields for design lifecycle events.
type DesignEventInput struct {
	ActorID        string
	UserID         string
	TenantID       string
	DesignHandle   string
	ProjectHandle  string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	Stage          StageContext
	FromStage      string
	ToStage        string
	OccurredAt     time.Time
}

// BuildDesignCreatedEvent constructs an activity event for the first commit
// of a new design.
func BuildDesignCreatedEvent(input DesignEventInput) Event {
	return buildDesignEvent("design.created", "design", input)
}

// BuildDesignUpdatedEvent constructs an activity event for a stage commit
// against an existing design.
func BuildDesignUpdatedEvent(input DesignEventInput) Event {
	return buildDesignEvent("design.updated", "design", input)
}

// BuildDesignResetEvent constructs an activity event for a session reset.
func BuildDesignResetEvent(input DesignEventInput) Event {
	return buildDesignEvent("design.reset", "design", input)
}

// BuildStageAdvancedEvent constructs an activity event for forward pipeline
// navigation.
func BuildStageAdvancedEvent(input DesignEventInput) Event {
	return buildDesignEvent("stage.advanced", "design.stage", input)
}

// BuildStageRetreatedEvent constructs an activity event for backward pipeline
// navigation.
func BuildStageRetreatedEvent(input DesignEventInput) Event {
	return buildDesignEvent("stage.retreated", "design.stage", input)
}

func buildDesignEvent(verb, objectType string, input DesignEventInput) Event {
	metadata := cloneMetadata(input.Metadata)
	if input.ProjectHandle != "" {
		metadata = ensureMetadata(metadata)
		metadata["project_handle"] = input.ProjectHandle
	}
	if input.Stage.ID != "" {
		metadata = ensureMetadata(metadata)
		metadata["stage"] = input.Stage.ID
		metadata["stage_ordinal"] = input.Stage.Ordinal
		if input.Stage.Label != "" {
			metadata["stage_label"] = input.Stage.Label
		}
		if len(input.Stage.Metadata) > 0 {
			metadata["stage_metadata"] = cloneMetadata(input.Stage.Metadata)
		}
	}
	if input.FromStage != "" {
		metadata = ensureMetadata(metadata)
		metadata["from_stage"] = input.FromStage
	}
	if input.ToStage != "" {
		metadata = ensureMetadata(metadata)
		metadata["to_stage"] = input.ToStage
	}

	recipients := input.Recipients
	if len(recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectID := strings.TrimSpace(input.DesignHandle)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Stage.ID)
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
