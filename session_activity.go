package rasdesign

import (
	"context"

	"github.com/goliatone/go-rasdesign/pkg/activity"
)

type stageTransition int

const (
	stageAdvanced stageTransition = iota
	stageRetreated
)

// Emission is best-effort: hook failures never fail the pipeline operation
// that triggered them.

func (s *Session) emitCommit(mode CommitMode, desc StageDescriptor, final bool) {
	if !s.emitter.Enabled() {
		return
	}
	input := activity.DesignEventInput{
		ActorID:       s.cfg.actorID,
		DesignHandle:  s.resolver.identity.DesignHandle,
		ProjectHandle: s.resolver.identity.ProjectHandle,
		Stage: activity.StageContext{
			ID:      string(desc.ID),
			Label:   desc.Label,
			Ordinal: desc.Ordinal,
		},
		Metadata: map[string]any{"final": final, "mode": string(mode)},
	}
	event := activity.BuildDesignUpdatedEvent(input)
	if mode == CommitCreate {
		event = activity.BuildDesignCreatedEvent(input)
	}
	_ = s.emitter.Emit(context.Background(), event)
}

func (s *Session) emitStage(transition stageTransition, from, to StageID) {
	if !s.emitter.Enabled() {
		return
	}
	input := activity.DesignEventInput{
		ActorID:       s.cfg.actorID,
		DesignHandle:  s.resolver.identity.DesignHandle,
		ProjectHandle: s.resolver.identity.ProjectHandle,
		FromStage:     string(from),
		ToStage:       string(to),
	}
	event := activity.BuildStageAdvancedEvent(input)
	if transition == stageRetreated {
		event = activity.BuildStageRetreatedEvent(input)
	}
	_ = s.emitter.Emit(context.Background(), event)
}

func (s *Session) emitReset(abandoned Identity) {
	if !s.emitter.Enabled() {
		return
	}
	_ = s.emitter.Emit(context.Background(), activity.BuildDesignResetEvent(activity.DesignEventInput{
		ActorID:       s.cfg.actorID,
		DesignHandle:  abandoned.DesignHandle,
		ProjectHandle: abandoned.ProjectHandle,
	}))
}
