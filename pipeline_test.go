package rasdesign

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/goliatone/go-rasdesign/pkg/activity"
)

type commitCall struct {
	stage    StageID
	mode     CommitMode
	identity Identity
	payload  map[string]any
}

type previewCall struct {
	stage   StageID
	payload map[string]any
}

// stubEngine records calls and answers with configurable results.
type stubEngine struct {
	mu          sync.Mutex
	commits     []commitCall
	previews    []previewCall
	commitErr   error
	previewErr  error
	previewHook func(ctx context.Context, stage StageID, payload map[string]any) (PreviewResult, error)
	handles     CommitResult
}

func newStubEngine() *stubEngine {
	return &stubEngine{
		handles: CommitResult{Status: "ok", DesignHandle: "dsg-1", ProjectHandle: "prj-1"},
	}
}

func (e *stubEngine) PreviewCalculate(ctx context.Context, stage StageID, payload map[string]any) (PreviewResult, error) {
	e.mu.Lock()
	e.previews = append(e.previews, previewCall{stage: stage, payload: payload})
	hook := e.previewHook
	err := e.previewErr
	e.mu.Unlock()
	if hook != nil {
		return hook(ctx, stage, payload)
	}
	if err != nil {
		return PreviewResult{}, err
	}
	return PreviewResult{
		Status:   "ok",
		Sections: map[string]map[string]any{"oxygen": {"demandKgDay": 14.2}},
	}, nil
}

func (e *stubEngine) CommitStage(_ context.Context, stage StageID, mode CommitMode, identity Identity, payload map[string]any) (CommitResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commits = append(e.commits, commitCall{stage: stage, mode: mode, identity: identity, payload: payload})
	if e.commitErr != nil {
		return CommitResult{}, e.commitErr
	}
	return e.handles, nil
}

func (e *stubEngine) commitCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.commits)
}

func (e *stubEngine) commitAt(i int) commitCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.commits[i]
}

func (e *stubEngine) previewCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.previews)
}

func (e *stubEngine) lastPreview() previewCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.previews[len(e.previews)-1]
}

func fillBasics(t *testing.T, s *Session) {
	t.Helper()
	mustEdit(t, s, StageBasics, "designName", Text("North Farm"))
	mustEdit(t, s, StageBasics, "species", Text("tilapia"))
}

func fillProduction(t *testing.T, s *Session) {
	t.Helper()
	mustEdit(t, s, StageProduction, "tankVolume", Number(30))
	mustEdit(t, s, StageProduction, "numTanks", Number(6))
	mustEdit(t, s, StageProduction, "feedRate", Number(150))
}

func mustEdit(t *testing.T, s *Session, stage StageID, field string, value FieldValue) {
	t.Helper()
	if err := s.OnFieldEdit(stage, field, value); err != nil {
		t.Fatalf("edit %s.%s: %v", stage, field, err)
	}
}

func mustAdvance(t *testing.T, s *Session) {
	t.Helper()
	if err := s.Advance(context.Background()); err != nil {
		t.Fatalf("advance from %s: %v", s.CurrentStage(), err)
	}
}

func TestNewSessionRequiresEngine(t *testing.T) {
	if _, err := NewSession(nil); !errors.Is(err, ErrNoEngine) {
		t.Fatalf("expected ErrNoEngine, got %v", err)
	}
}

func TestNewSessionRejectsDuplicateStages(t *testing.T) {
	stages := []StageDescriptor{
		{ID: StageBasics},
		{ID: StageBasics},
	}
	if _, err := NewSession(newStubEngine(), WithStages(stages)); err == nil {
		t.Fatalf("expected duplicate stage error")
	}
}

func TestAdvanceRequiredFieldValidation(t *testing.T) {
	engine := newStubEngine()
	session, err := NewSession(engine)
	if err != nil {
		t.Fatalf("session: %v", err)
	}

	err = session.Advance(context.Background())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Missing) != 2 {
		t.Fatalf("expected designName and species missing, got %v", verr.Missing)
	}
	if session.CurrentStage() != StageBasics {
		t.Fatalf("expected stage unchanged, got %s", session.CurrentStage())
	}
	if engine.commitCount() != 0 {
		t.Fatalf("expected no commit on validation failure")
	}
}

func TestAdvanceRuleFailure(t *testing.T) {
	engine := newStubEngine()
	session, err := NewSession(engine)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	fillBasics(t, session)
	mustAdvance(t, session)

	mustEdit(t, session, StageProduction, "tankVolume", Number(-5))
	mustEdit(t, session, StageProduction, "numTanks", Number(6))
	mustEdit(t, session, StageProduction, "feedRate", Number(150))

	err = session.Advance(context.Background())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Failures) != 1 || verr.Failures[0].Message != "tank volume must be positive" {
		t.Fatalf("unexpected failures: %+v", verr.Failures)
	}
	if session.CurrentStage() != StageProduction {
		t.Fatalf("expected stage unchanged, got %s", session.CurrentStage())
	}
}

func TestAdvanceCreatesThenUpdates(t *testing.T) {
	engine := newStubEngine()
	session, err := NewSession(engine)
	if err != nil {
		t.Fatalf("session: %v", err)
	}

	fillBasics(t, session)
	mustAdvance(t, session)

	if got := session.Identity(); got.DesignHandle != "dsg-1" || got.ProjectHandle != "prj-1" {
		t.Fatalf("expected absorbed handles, got %+v", got)
	}
	if session.CurrentStage() != StageProduction {
		t.Fatalf("expected production, got %s", session.CurrentStage())
	}
	first := engine.commitAt(0)
	if first.stage != StageBasics || first.mode != CommitCreate {
		t.Fatalf("expected basics create, got %+v", first)
	}
	if first.payload["designName"] != "North Farm" {
		t.Fatalf("expected basics payload, got %#v", first.payload)
	}

	fillProduction(t, session)
	mustAdvance(t, session)

	// No optional stages selected: production advances straight to report.
	if session.CurrentStage() != StageReport {
		t.Fatalf("expected report, got %s", session.CurrentStage())
	}
	second := engine.commitAt(1)
	if second.stage != StageProduction || second.mode != CommitUpdate {
		t.Fatalf("expected production update, got %+v", second)
	}
	if second.identity.DesignHandle != "dsg-1" {
		t.Fatalf("expected identity carried into commit, got %+v", second.identity)
	}

	if err := session.Advance(context.Background()); !errors.Is(err, ErrPipelineDone) {
		t.Fatalf("expected ErrPipelineDone at terminal stage, got %v", err)
	}
}

func TestAdvanceThroughOptionalStage(t *testing.T) {
	engine := newStubEngine()
	session, err := NewSession(engine)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if err := session.SelectOptionalStage(StageBiofilter, true); err != nil {
		t.Fatalf("select: %v", err)
	}

	fillBasics(t, session)
	mustAdvance(t, session)
	fillProduction(t, session)
	mustAdvance(t, session)

	if session.CurrentStage() != StageBiofilter {
		t.Fatalf("expected biofilter, got %s", session.CurrentStage())
	}
	if _, ok := session.SnapshotFor(StageProduction); !ok {
		t.Fatalf("expected production snapshot captured on entry")
	}

	mustEdit(t, session, StageBiofilter, "mediaSSA", Number(600))
	mustAdvance(t, session)
	if session.CurrentStage() != StageReport {
		t.Fatalf("expected report after biofilter, got %s", session.CurrentStage())
	}
}

func TestSelectOptionalStageErrors(t *testing.T) {
	session, err := NewSession(newStubEngine())
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if err := session.SelectOptionalStage("mystery", true); !errors.Is(err, ErrUnknownStage) {
		t.Fatalf("expected ErrUnknownStage, got %v", err)
	}
	if err := session.SelectOptionalStage(StageProduction, true); !errors.Is(err, ErrStageNotOptional) {
		t.Fatalf("expected ErrStageNotOptional, got %v", err)
	}
}

func TestRetreatAndReAdvance(t *testing.T) {
	engine := newStubEngine()
	session, err := NewSession(engine)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	fillBasics(t, session)
	mustAdvance(t, session)

	if err := session.Retreat(); err != nil {
		t.Fatalf("retreat: %v", err)
	}
	if session.CurrentStage() != StageBasics {
		t.Fatalf("expected basics after retreat, got %s", session.CurrentStage())
	}

	// Identity and form survive; the re-advance commits an update against the
	// same design rather than creating a second one.
	if session.Identity().DesignHandle != "dsg-1" {
		t.Fatalf("expected identity preserved, got %+v", session.Identity())
	}
	form, err := session.Form(StageBasics)
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	if value, _ := form.Get("designName"); value.Text() != "North Farm" {
		t.Fatalf("expected form preserved, got %#v", value)
	}

	mustAdvance(t, session)
	if engine.commitAt(1).mode != CommitUpdate {
		t.Fatalf("expected second commit to be an update, got %+v", engine.commitAt(1))
	}
}

func TestRetreatWithoutHistory(t *testing.T) {
	session, err := NewSession(newStubEngine())
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if err := session.Retreat(); !errors.Is(err, ErrNoPriorStage) {
		t.Fatalf("expected ErrNoPriorStage, got %v", err)
	}
}

func TestAdvanceCommitRejected(t *testing.T) {
	engine := newStubEngine()
	engine.commitErr = errors.New("species unsupported in region")
	session, err := NewSession(engine)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	fillBasics(t, session)

	err = session.Advance(context.Background())
	var rejected *CommitRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected CommitRejectedError, got %v", err)
	}
	if rejected.Stage != StageBasics || rejected.Mode != CommitCreate {
		t.Fatalf("unexpected rejection: %+v", rejected)
	}
	if session.CurrentStage() != StageBasics {
		t.Fatalf("expected stage unchanged, got %s", session.CurrentStage())
	}
	if session.LastCommitError() == nil {
		t.Fatalf("expected last commit error recorded")
	}

	engine.mu.Lock()
	engine.commitErr = nil
	engine.mu.Unlock()
	mustAdvance(t, session)
	if session.LastCommitError() != nil {
		t.Fatalf("expected last commit error cleared, got %v", session.LastCommitError())
	}
}

func TestAdvanceEngineReturnsNoHandles(t *testing.T) {
	engine := newStubEngine()
	engine.handles = CommitResult{Status: "ok"}
	session, err := NewSession(engine)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	fillBasics(t, session)

	if err := session.Advance(context.Background()); !errors.Is(err, ErrMissingIdentity) {
		t.Fatalf("expected ErrMissingIdentity, got %v", err)
	}
	if session.CurrentStage() != StageBasics {
		t.Fatalf("expected stage unchanged, got %s", session.CurrentStage())
	}
}

func TestUpdateFlow(t *testing.T) {
	engine := newStubEngine()
	session, err := NewSession(engine, WithUpdateFlow(Identity{DesignHandle: "dsg-9", ProjectHandle: "prj-9"}))
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if !session.UpdateFlow() {
		t.Fatalf("expected update flow")
	}
	fillBasics(t, session)
	mustAdvance(t, session)

	first := engine.commitAt(0)
	if first.mode != CommitUpdate {
		t.Fatalf("expected update commit in update flow, got %+v", first)
	}
	if first.identity.DesignHandle != "dsg-9" {
		t.Fatalf("expected preset identity, got %+v", first.identity)
	}
}

func TestUpdateFlowIncompleteIdentity(t *testing.T) {
	session, err := NewSession(newStubEngine(), WithUpdateFlow(Identity{DesignHandle: "dsg-9"}))
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	fillBasics(t, session)
	if err := session.Advance(context.Background()); !errors.Is(err, ErrIncompleteIdentity) {
		t.Fatalf("expected ErrIncompleteIdentity, got %v", err)
	}
}

func TestReset(t *testing.T) {
	engine := newStubEngine()
	session, err := NewSession(engine)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if err := session.SelectOptionalStage(StagePumping, true); err != nil {
		t.Fatalf("select: %v", err)
	}
	fillBasics(t, session)
	mustAdvance(t, session)

	session.Reset()

	if session.CurrentStage() != StageBasics {
		t.Fatalf("expected basics after reset, got %s", session.CurrentStage())
	}
	if !session.Identity().Empty() {
		t.Fatalf("expected empty identity, got %+v", session.Identity())
	}
	form, _ := session.Form(StageBasics)
	if form.Len() != 0 {
		t.Fatalf("expected cleared form, got %d fields", form.Len())
	}
	if len(session.VisitedStages()) != 0 {
		t.Fatalf("expected cleared history")
	}
	if len(session.SelectedStages()) != 0 {
		t.Fatalf("expected cleared selections")
	}
	if len(session.Readiness()) != 0 {
		t.Fatalf("expected cleared readiness")
	}
}

func TestLifecycleEventsEmitted(t *testing.T) {
	capture := &activity.CaptureHook{}
	engine := newStubEngine()
	session, err := NewSession(engine,
		WithActorID("00000000-0000-0000-0000-000000000001"),
		WithActivityHooks(activity.Hooks{capture}),
	)
	if err != nil {
		t.Fatalf("session: %v", err)
	}

	fillBasics(t, session)
	mustAdvance(t, session)
	session.Reset()

	verbs := capture.Verbs()
	want := []string{"design.created", "stage.advanced", "design.reset"}
	if len(verbs) != len(want) {
		t.Fatalf("expected verbs %v, got %v", want, verbs)
	}
	for i, verb := range want {
		if verbs[i] != verb {
			t.Fatalf("expected verbs %v, got %v", want, verbs)
		}
	}
	if capture.Events[0].ObjectID != "dsg-1" {
		t.Fatalf("expected design handle as object id, got %q", capture.Events[0].ObjectID)
	}
	if capture.Events[0].Channel != "rasdesign" {
		t.Fatalf("expected default channel, got %q", capture.Events[0].Channel)
	}
}
