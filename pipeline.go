package rasdesign

import (
	"context"
	"fmt"
)

// Advance validates the active stage, commits it, and moves the session to
// the next selected stage. Unselected optional stages are skipped. The stage
// is not left when validation or the commit fails.
func (s *Session) Advance(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, _ := s.descFor(s.current)
	if cur.ID == s.terminalStage() {
		return ErrPipelineDone
	}
	if err := s.validateStageLocked(cur); err != nil {
		return err
	}
	next := s.nextStageLocked(cur)
	final := next.ID == s.terminalStage()
	if err := s.commitLocked(ctx, cur, final); err != nil {
		return err
	}

	s.visited = append(s.visited, cur.ID)
	s.current = next.ID
	for _, dep := range next.DependsOn {
		if form, ok := s.forms[dep]; ok {
			s.snapshots.refresh(dep, form)
		}
	}
	s.emitStage(stageAdvanced, cur.ID, next.ID)
	return nil
}

// Retreat returns to the most recently visited stage. Form state, identity,
// and snapshots are untouched so an immediate re-advance reproduces the same
// commit.
func (s *Session) Retreat() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.visited) == 0 {
		return ErrNoPriorStage
	}
	from := s.current
	prev := s.visited[len(s.visited)-1]
	s.visited = s.visited[:len(s.visited)-1]
	s.current = prev
	s.emitStage(stageRetreated, from, prev)
	return nil
}

// SelectOptionalStage includes or excludes an optional stage from the
// remaining pipeline. Deselecting a stage already visited does not rewind.
func (s *Session) SelectOptionalStage(stage StageID, selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	desc, ok := s.descFor(stage)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStage, stage)
	}
	if !desc.Optional {
		return fmt.Errorf("%w: %s", ErrStageNotOptional, stage)
	}
	if selected {
		s.selected[stage] = true
	} else {
		delete(s.selected, stage)
	}
	return nil
}

// Reset abandons the session's design: forms, identity, readiness,
// snapshots, and any pending or in-flight previews. The session returns to
// the first stage as a fresh create flow.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	abandoned := s.resolver.identity
	s.cancelPreviewsLocked()
	for id := range s.forms {
		s.forms[id] = NewFormState()
	}
	s.visited = nil
	s.selected = map[StageID]bool{}
	s.current = s.stages[0].ID
	s.snapshots.reset()
	s.readiness.reset()
	s.resolver = identityResolver{}
	s.lastCommitErr = nil
	s.emitReset(abandoned)
}

// validateStageLocked checks required fields first; validation rules only
// run against a complete form so rule expressions never see missing inputs.
func (s *Session) validateStageLocked(desc StageDescriptor) error {
	form := s.forms[desc.ID]

	var missing []string
	for _, name := range desc.RequiredFields() {
		value, ok := form.Get(name)
		if !ok || (value.Kind() != KindBool && value.IsEmpty()) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Stage: desc.ID, Missing: missing}
	}

	var failures []RuleFailure
	for _, rule := range desc.Rules {
		result, err := s.evaluateRule(desc, form, rule.Expr)
		if err != nil {
			return err
		}
		if !isTruthy(result) {
			failures = append(failures, RuleFailure{Expr: rule.Expr, Message: rule.Message})
		}
	}
	if len(failures) > 0 {
		return &ValidationError{Stage: desc.ID, Failures: failures}
	}
	return nil
}

// nextStageLocked picks the next stage in ordinal order, skipping optional
// stages the user has not selected. The terminal stage is never optional, so
// a successor always exists.
func (s *Session) nextStageLocked(cur StageDescriptor) StageDescriptor {
	for i := s.index[cur.ID] + 1; i < len(s.stages); i++ {
		desc := s.stages[i]
		if desc.Optional && !s.selected[desc.ID] {
			continue
		}
		return desc
	}
	return s.stages[len(s.stages)-1]
}
