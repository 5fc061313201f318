package rasdesign

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// stageDispatch tracks one stage's pending debounce timer, its current
// request token, and the cancel func of the in-flight preview, if any.
type stageDispatch struct {
	timer  *time.Timer
	token  uint64
	cancel context.CancelFunc
}

// OnFieldEdit records a field change and (re)schedules the stage's debounced
// preview. Editing any field restarts the quiet window, so a burst of edits
// coalesces into a single dispatch. Edits on stages without preview sections,
// or before the preview preconditions hold, update the form silently.
func (s *Session) OnFieldEdit(stage StageID, field string, value FieldValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	desc, ok := s.descFor(stage)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStage, stage)
	}
	if _, owns := desc.FieldSpecFor(field); !owns {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, stage, field)
	}
	s.forms[stage].Set(field, value)
	s.schedulePreviewLocked(desc)
	return nil
}

// FlushPreview collapses a pending debounce window and dispatches the
// stage's preview immediately. It is a no-op when nothing is scheduled.
func (s *Session) FlushPreview(stage StageID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.dispatchFor(stage)
	if d.timer == nil || !d.timer.Stop() {
		return
	}
	d.timer = nil
	s.dispatchNowLocked(stage)
}

func (s *Session) schedulePreviewLocked(desc StageDescriptor) {
	if len(desc.Sections) == 0 {
		return
	}
	if !s.previewReadyLocked(desc) {
		return
	}
	d := s.dispatchFor(desc.ID)
	if d.timer != nil {
		d.timer.Stop()
	}
	stage := desc.ID
	d.timer = time.AfterFunc(s.cfg.debounce, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.dispatchNowLocked(stage)
	})
}

// previewReadyLocked gates dispatch: a backend design must exist and every
// precondition field must be set somewhere the payload can see it.
func (s *Session) previewReadyLocked(desc StageDescriptor) bool {
	if s.resolver.identity.DesignHandle == "" {
		return false
	}
	for _, name := range desc.PreviewRequires {
		value, ok := s.lookupFieldLocked(desc, name)
		if !ok {
			return false
		}
		if value.Kind() != KindBool && value.IsEmpty() {
			return false
		}
	}
	return true
}

// lookupFieldLocked resolves a field the way payload assembly would: the
// stage's own form first, then upstream snapshots, then upstream live forms
// for preconditions checked before the snapshot exists.
func (s *Session) lookupFieldLocked(desc StageDescriptor, name string) (FieldValue, bool) {
	if value, ok := s.forms[desc.ID].Get(name); ok {
		return value, true
	}
	for _, dep := range desc.DependsOn {
		if snap, ok := s.snapshots.get(dep); ok {
			if value, ok := snap.Values().Get(name); ok {
				return value, true
			}
			continue
		}
		if form, ok := s.forms[dep]; ok {
			if value, ok := form.Get(name); ok {
				return value, true
			}
		}
	}
	return FieldValue{}, false
}

// dispatchNowLocked supersedes any in-flight preview for the stage, marks
// its sections loading, and launches the engine call off the lock.
func (s *Session) dispatchNowLocked(stage StageID) {
	desc, ok := s.descFor(stage)
	if !ok {
		return
	}
	d := s.dispatchFor(stage)
	d.timer = nil
	if !s.previewReadyLocked(desc) {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.token++
	token := d.token

	payload, err := s.payloadForLocked(stage)
	if err != nil {
		s.dispatchLogger().LogDispatch(DispatchLogEvent{Stage: stage, Token: token, Err: err})
		return
	}
	s.readiness.markLoading(stage, token, desc.Sections)

	ctx, cancel := context.WithTimeout(s.cfg.baseCtx, s.cfg.previewTimeout)
	d.cancel = cancel
	s.dispatchLogger().LogDispatch(DispatchLogEvent{Stage: stage, Token: token, Fields: len(payload)})
	go s.completePreview(ctx, cancel, stage, token, payload, desc.Sections)
}

func (s *Session) completePreview(ctx context.Context, cancel context.CancelFunc, stage StageID, token uint64, payload map[string]any, sections []string) {
	defer cancel()
	start := time.Now()
	result, err := s.engine.PreviewCalculate(ctx, stage, payload)
	for attempt := 0; err != nil && attempt < s.cfg.previewRetries && ctx.Err() == nil; attempt++ {
		result, err = s.engine.PreviewCalculate(ctx, stage, payload)
	}
	duration := time.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.dispatchFor(stage)
	if token != d.token {
		s.dispatchLogger().LogDispatch(DispatchLogEvent{Stage: stage, Token: token, Duration: duration, Stale: true})
		return
	}
	d.cancel = nil
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			// Superseded or reset mid-flight; nothing to report.
			return
		}
		s.readiness.markError(stage, token, sections)
		s.dispatchLogger().LogDispatch(DispatchLogEvent{
			Stage:    stage,
			Token:    token,
			Duration: duration,
			Err:      &PreviewError{Stage: stage, Token: token, Err: err},
		})
		return
	}
	s.readiness.merge(stage, token, result.Sections)
	s.dispatchLogger().LogDispatch(DispatchLogEvent{Stage: stage, Token: token, Duration: duration})
}

// cancelPreviewsLocked stops every pending timer, cancels in-flight calls,
// and bumps tokens so completions racing the reset are discarded.
func (s *Session) cancelPreviewsLocked() {
	for _, d := range s.dispatch {
		if d.timer != nil {
			d.timer.Stop()
			d.timer = nil
		}
		if d.cancel != nil {
			d.cancel()
			d.cancel = nil
		}
		d.token++
	}
}
