package rasdesign

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-rasdesign/pkg/activity"
)

const (
	// DefaultDebounce is the quiet window between the last field edit and the
	// preview dispatch it coalesces into.
	DefaultDebounce = 400 * time.Millisecond
	// DefaultPreviewTimeout bounds one preview round trip. A timed-out
	// preview marks its sections errored without blocking further edits.
	DefaultPreviewTimeout = 12 * time.Second
	// DefaultPreviewRetries is the number of times a failed (non-cancelled)
	// preview is retried before its sections are marked errored.
	DefaultPreviewRetries = 1
)

// SessionOption configures a Session at construction time.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	stages          []StageDescriptor
	debounce        time.Duration
	previewTimeout  time.Duration
	previewRetries  int
	evaluator       Evaluator
	programCache    ProgramCache
	functions       *FunctionRegistry
	ruleLogger      EvaluatorLogger
	dispatchLogger  DispatchLogger
	schemaGenerator SchemaGenerator
	hooks           activity.Hooks
	updateFlow      bool
	identity        Identity
	actorID         string
	baseCtx         context.Context
	clock           func() time.Time
	state           *SessionState
}

// WithStages replaces the canonical stage sequence. Descriptors must be
// supplied in ordinal order with unique ids.
func WithStages(stages []StageDescriptor) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.stages = stages
	}
}

// WithDebounce overrides the debounce window for preview dispatches.
func WithDebounce(d time.Duration) SessionOption {
	return func(cfg *sessionConfig) {
		if d > 0 {
			cfg.debounce = d
		}
	}
}

// WithPreviewTimeout bounds each preview round trip.
func WithPreviewTimeout(d time.Duration) SessionOption {
	return func(cfg *sessionConfig) {
		if d > 0 {
			cfg.previewTimeout = d
		}
	}
}

// WithPreviewRetries sets how many times a failed preview call is retried
// before giving up. Zero disables retries.
func WithPreviewRetries(n int) SessionOption {
	return func(cfg *sessionConfig) {
		if n >= 0 {
			cfg.previewRetries = n
		}
	}
}

// WithEvaluator configures the rule evaluation engine. Defaults to the expr
// backend when unset.
func WithEvaluator(e Evaluator) SessionOption {
	return func(cfg *sessionConfig) {
		if e != nil {
			cfg.evaluator = e
		}
	}
}

// WithUpdateFlow marks the session as editing an existing design. The
// identity must carry both handles; updateFlow is fixed for the session's
// lifetime and never flipped by navigation.
func WithUpdateFlow(identity Identity) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.updateFlow = true
		cfg.identity = identity
	}
}

// WithActorID attributes lifecycle activity events to an actor.
func WithActorID(id string) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.actorID = id
	}
}

// WithActivityHooks attaches lifecycle event hooks. Nil entries are dropped;
// events are best-effort and never fail session operations.
func WithActivityHooks(hooks activity.Hooks) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.hooks = hooks
	}
}

// WithBaseContext sets the context preview calls derive their deadlines
// from. Cancelling it stops all in-flight previews.
func WithBaseContext(ctx context.Context) SessionOption {
	return func(cfg *sessionConfig) {
		if ctx != nil {
			cfg.baseCtx = ctx
		}
	}
}

// WithClock overrides the time source used for readiness timestamps and
// snapshot capture times.
func WithClock(clock func() time.Time) SessionOption {
	return func(cfg *sessionConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// WithSchemaGenerator configures a custom form schema generator.
func WithSchemaGenerator(generator SchemaGenerator) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.schemaGenerator = generator
	}
}

// WithState restores a previously exported session state, typically loaded
// through a sessionstore implementation.
func WithState(state SessionState) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.state = &state
	}
}

// Session owns one design's staged calculation flow: the stage pipeline, the
// per-stage forms, the debounced preview dispatcher, the readiness store, the
// snapshot cache, and the identity resolver. It is safe for use from UI event
// callbacks and timer/network completions; all mutation is serialised.
type Session struct {
	mu  sync.Mutex
	cfg sessionConfig

	engine CalcEngine
	stages []StageDescriptor
	index  map[StageID]int

	forms    map[StageID]*FormState
	current  StageID
	visited  []StageID
	selected map[StageID]bool

	snapshots *snapshotCache
	readiness *readinessStore
	resolver  identityResolver
	dispatch  map[StageID]*stageDispatch

	lastCommitErr error
	emitter       *activity.Emitter
}

// NewSession constructs a session around the supplied calculation engine.
func NewSession(engine CalcEngine, opts ...SessionOption) (*Session, error) {
	if engine == nil {
		return nil, ErrNoEngine
	}
	cfg := sessionConfig{
		debounce:       DefaultDebounce,
		previewTimeout: DefaultPreviewTimeout,
		previewRetries: DefaultPreviewRetries,
		baseCtx:        context.Background(),
		clock:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	stages := cfg.stages
	if len(stages) == 0 {
		stages = DefaultStages()
	}
	index := make(map[StageID]int, len(stages))
	for i, desc := range stages {
		if desc.ID == "" {
			return nil, fmt.Errorf("rasdesign: stage %d: id must be provided", i)
		}
		if _, dup := index[desc.ID]; dup {
			return nil, fmt.Errorf("rasdesign: duplicate stage id %q", desc.ID)
		}
		index[desc.ID] = i
	}
	if last := stages[len(stages)-1]; last.Optional {
		return nil, fmt.Errorf("rasdesign: terminal stage %q must not be optional", last.ID)
	}

	s := &Session{
		cfg:       cfg,
		engine:    engine,
		stages:    stages,
		index:     index,
		forms:     make(map[StageID]*FormState, len(stages)),
		current:   stages[0].ID,
		selected:  map[StageID]bool{},
		snapshots: newSnapshotCache(cfg.clock),
		readiness: newReadinessStore(cfg.clock),
		resolver:  identityResolver{identity: cfg.identity, updateFlow: cfg.updateFlow},
		dispatch:  map[StageID]*stageDispatch{},
	}
	for _, desc := range stages {
		s.forms[desc.ID] = NewFormState()
	}
	if len(cfg.hooks) > 0 {
		s.emitter = activity.NewEmitter(cfg.hooks, activity.Config{Enabled: true})
	}
	if cfg.state != nil {
		if err := s.restoreState(*cfg.state); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// CurrentStage returns the active stage id.
func (s *Session) CurrentStage() StageID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Form returns a detached copy of the stage's form state.
func (s *Session) Form(stage StageID) (*FormState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	form, ok := s.forms[stage]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStage, stage)
	}
	return form.Clone(), nil
}

// Identity returns the backend handles known so far.
func (s *Session) Identity() Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolver.identity
}

// UpdateFlow reports whether the session edits a pre-existing design.
func (s *Session) UpdateFlow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolver.updateFlow
}

// LastCommitError returns the most recent commit failure, or nil after a
// successful commit.
func (s *Session) LastCommitError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCommitErr
}

// Readiness returns a detached view of the output readiness model.
func (s *Session) Readiness() map[string]SectionReadiness {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readiness.view()
}

// ReadinessField returns one output field's entry.
func (s *Session) ReadinessField(section, field string) (ReadinessEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readiness.field(section, field)
}

// SelectedStages returns the optional stages currently selected, in ordinal
// order.
func (s *Session) SelectedStages() []StageID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []StageID
	for _, desc := range s.stages {
		if desc.Optional && s.selected[desc.ID] {
			out = append(out, desc.ID)
		}
	}
	return out
}

// VisitedStages returns the retreat history, oldest first.
func (s *Session) VisitedStages() []StageID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StageID, len(s.visited))
	copy(out, s.visited)
	return out
}

// SnapshotFor returns the frozen upstream copy held for stage, if captured.
func (s *Session) SnapshotFor(stage StageID) (*Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots.get(stage)
}

// Payload assembles the wire payload the stage's next preview or commit
// would carry.
func (s *Session) Payload(stage StageID) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payloadForLocked(stage)
}

// PayloadTraceFor assembles the stage's payload and reports which source
// supplied each field.
func (s *Session) PayloadTraceFor(stage StageID) (PayloadTrace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stack, err := s.payloadStackLocked(stage)
	if err != nil {
		return PayloadTrace{}, err
	}
	_, trace := stack.MergeWithTrace()
	trace.Stage = stage
	return trace, nil
}

// Stages returns the configured stage descriptors in ordinal order.
func (s *Session) Stages() []StageDescriptor {
	out := make([]StageDescriptor, len(s.stages))
	copy(out, s.stages)
	return out
}

func (s *Session) descFor(stage StageID) (StageDescriptor, bool) {
	i, ok := s.index[stage]
	if !ok {
		return StageDescriptor{}, false
	}
	return s.stages[i], true
}

func (s *Session) terminalStage() StageID {
	return s.stages[len(s.stages)-1].ID
}

func (s *Session) payloadStackLocked(stage StageID) (*PayloadStack, error) {
	desc, ok := s.descFor(stage)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStage, stage)
	}
	layers := []PayloadLayer{{
		Source: Source{Name: string(desc.ID), Label: desc.Label, Priority: desc.Priority},
		Values: s.forms[desc.ID].Clone(),
	}}
	for _, dep := range desc.DependsOn {
		snap, ok := s.snapshots.get(dep)
		if !ok {
			continue
		}
		depDesc, ok := s.descFor(dep)
		if !ok {
			continue
		}
		layers = append(layers, PayloadLayer{
			Source:     Source{Name: string(dep), Label: depDesc.Label, Priority: depDesc.Priority},
			Values:     snap.Values(),
			SnapshotID: snap.ID,
		})
	}
	return NewPayloadStack(layers...)
}

func (s *Session) payloadForLocked(stage StageID) (map[string]any, error) {
	stack, err := s.payloadStackLocked(stage)
	if err != nil {
		return nil, err
	}
	return stack.Merge(), nil
}

func (s *Session) dispatchFor(stage StageID) *stageDispatch {
	d, ok := s.dispatch[stage]
	if !ok {
		d = &stageDispatch{}
		s.dispatch[stage] = d
	}
	return d
}

func (s *Session) dispatchLogger() DispatchLogger {
	if s.cfg.dispatchLogger != nil {
		return s.cfg.dispatchLogger
	}
	return noopDispatchLogger{}
}
