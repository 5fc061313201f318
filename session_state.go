package rasdesign

import "fmt"

// FieldState is the serialisable form of one field entry. Exactly one of the
// value columns is meaningful, selected by Kind.
type FieldState struct {
	Name   string  `json:"name"`
	Kind   Kind    `json:"kind"`
	Number float64 `json:"number,omitempty"`
	Text   string  `json:"text,omitempty"`
	Bool   bool    `json:"bool,omitempty"`
}

func fieldStateOf(name string, value FieldValue) FieldState {
	fs := FieldState{Name: name, Kind: value.Kind()}
	switch value.Kind() {
	case KindNumber:
		fs.Number = value.Float64()
	case KindText:
		fs.Text = value.Text()
	case KindBool:
		fs.Bool = value.Bool()
	}
	return fs
}

func (fs FieldState) value() FieldValue {
	switch fs.Kind {
	case KindNumber:
		return Number(fs.Number)
	case KindText:
		return Text(fs.Text)
	case KindBool:
		return Bool(fs.Bool)
	default:
		return FieldValue{}
	}
}

// SessionState is a point-in-time export of everything needed to resume a
// wizard session: handles, navigation position, optional stage selections,
// and every stage's form. Readiness and snapshots are deliberately excluded;
// both are rebuilt from previews after restore.
type SessionState struct {
	Identity   Identity                 `json:"identity"`
	UpdateFlow bool                     `json:"update_flow,omitempty"`
	Current    StageID                  `json:"current"`
	Visited    []StageID                `json:"visited,omitempty"`
	Selected   []StageID                `json:"selected,omitempty"`
	Forms      map[StageID][]FieldState `json:"forms,omitempty"`
}

// ExportState captures the session for persistence.
func (s *Session) ExportState() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := SessionState{
		Identity:   s.resolver.identity,
		UpdateFlow: s.resolver.updateFlow,
		Current:    s.current,
		Forms:      map[StageID][]FieldState{},
	}
	if len(s.visited) > 0 {
		state.Visited = append([]StageID{}, s.visited...)
	}
	for _, desc := range s.stages {
		if desc.Optional && s.selected[desc.ID] {
			state.Selected = append(state.Selected, desc.ID)
		}
		form := s.forms[desc.ID]
		if form.Len() == 0 {
			continue
		}
		fields := make([]FieldState, 0, form.Len())
		for _, name := range form.Fields() {
			value, _ := form.Get(name)
			fields = append(fields, fieldStateOf(name, value))
		}
		state.Forms[desc.ID] = fields
	}
	return state
}

// restoreState rebuilds session internals from an exported state. Runs once
// during construction, before the session is shared.
func (s *Session) restoreState(state SessionState) error {
	if state.Current != "" {
		if _, ok := s.index[state.Current]; !ok {
			return fmt.Errorf("%w: restored current stage %s", ErrUnknownStage, state.Current)
		}
		s.current = state.Current
	}
	for _, stage := range state.Visited {
		if _, ok := s.index[stage]; !ok {
			return fmt.Errorf("%w: restored visited stage %s", ErrUnknownStage, stage)
		}
	}
	if len(state.Visited) > 0 {
		s.visited = append([]StageID{}, state.Visited...)
	}
	for _, stage := range state.Selected {
		desc, ok := s.descFor(stage)
		if !ok {
			return fmt.Errorf("%w: restored selection %s", ErrUnknownStage, stage)
		}
		if !desc.Optional {
			return fmt.Errorf("%w: restored selection %s", ErrStageNotOptional, stage)
		}
		s.selected[stage] = true
	}
	for stage, fields := range state.Forms {
		form, ok := s.forms[stage]
		if !ok {
			return fmt.Errorf("%w: restored form for %s", ErrUnknownStage, stage)
		}
		for _, fs := range fields {
			form.Set(fs.Name, fs.value())
		}
	}
	s.resolver = identityResolver{
		identity:   state.Identity,
		updateFlow: state.UpdateFlow,
		created:    state.Identity.Complete(),
	}
	// Dependent stages resume with fresh copies of whatever the restored
	// upstream forms hold.
	if desc, ok := s.descFor(s.current); ok {
		for _, dep := range desc.DependsOn {
			if form, ok := s.forms[dep]; ok && form.Len() > 0 {
				s.snapshots.refresh(dep, form)
			}
		}
	}
	return nil
}
