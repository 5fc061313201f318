package activity

import (
	"testing"
	"time"
)

func TestBuildDesignCreatedEvent(t *testing.T) {
	occurred := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	event := BuildDesignCreatedEvent(DesignEventInput{
		ActorID:       " actor-1 ",
		DesignHandle:  "dsg-100",
		ProjectHandle: "prj-7",
		Stage: StageContext{
			ID:      "basics",
			Label:   "Design Basics",
			Ordinal: 0,
		},
		Metadata:   map[string]any{"mode": "create"},
		OccurredAt: occurred,
	})

	if event.Verb != "design.created" {
		t.Fatalf("unexpected verb %q", event.Verb)
	}
	if event.ObjectType != "design" || event.ObjectID != "dsg-100" {
		t.Fatalf("unexpected object: %+v", event)
	}
	if event.ActorID != "actor-1" {
		t.Fatalf("expected actor trimmed, got %q", event.ActorID)
	}
	if event.Metadata["project_handle"] != "prj-7" {
		t.Fatalf("expected project handle in metadata: %+v", event.Metadata)
	}
	if event.Metadata["stage"] != "basics" || event.Metadata["stage_label"] != "Design Basics" {
		t.Fatalf("expected stage context in metadata: %+v", event.Metadata)
	}
	if event.Metadata["mode"] != "create" {
		t.Fatalf("expected caller metadata preserved: %+v", event.Metadata)
	}
	if !event.OccurredAt.Equal(occurred) {
		t.Fatalf("expected occurred_at preserved, got %v", event.OccurredAt)
	}
}

func TestBuildStageNavigationEvents(t *testing.T) {
	advanced := BuildStageAdvancedEvent(DesignEventInput{
		DesignHandle: "dsg-100",
		FromStage:    "production",
		ToStage:      "biofilter",
	})
	if advanced.Verb != "stage.advanced" || advanced.ObjectType != "design.stage" {
		t.Fatalf("unexpected advanced event: %+v", advanced)
	}
	if advanced.Metadata["from_stage"] != "production" || advanced.Metadata["to_stage"] != "biofilter" {
		t.Fatalf("expected navigation metadata: %+v", advanced.Metadata)
	}

	retreated := BuildStageRetreatedEvent(DesignEventInput{
		DesignHandle: "dsg-100",
		FromStage:    "biofilter",
		ToStage:      "production",
	})
	if retreated.Verb != "stage.retreated" {
		t.Fatalf("unexpected retreated verb %q", retreated.Verb)
	}
}

func TestBuildDesignEventObjectIDFallbacks(t *testing.T) {
	fromStage := BuildDesignUpdatedEvent(DesignEventInput{Stage: StageContext{ID: "production"}})
	if fromStage.ObjectID != "production" {
		t.Fatalf("expected stage id fallback, got %q", fromStage.ObjectID)
	}

	bare := BuildDesignResetEvent(DesignEventInput{})
	if bare.ObjectID != "design" {
		t.Fatalf("expected object type fallback, got %q", bare.ObjectID)
	}
}

func TestBuildDesignEventClonesMetadata(t *testing.T) {
	meta := map[string]any{"k": "v"}
	event := BuildDesignUpdatedEvent(DesignEventInput{
		DesignHandle: "dsg-1",
		Metadata:     meta,
		Stage:        StageContext{ID: "production", Metadata: map[string]any{"inner": true}},
	})
	event.Metadata["k"] = "changed"
	if meta["k"] != "v" {
		t.Fatalf("expected caller metadata untouched: %+v", meta)
	}
}
