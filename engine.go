package rasdesign

import "context"

// CommitMode selects whether a commit creates a backend resource or mutates
// an existing one.
type CommitMode string

const (
	CommitCreate CommitMode = "create"
	CommitUpdate CommitMode = "update"
)

// Identity holds the backend-assigned handles identifying a design and its
// underlying project resource. Created empty; populated by the first
// successful create.
type Identity struct {
	DesignHandle  string
	ProjectHandle string
}

// Complete reports whether both handles are known.
func (id Identity) Complete() bool {
	return id.DesignHandle != "" && id.ProjectHandle != ""
}

// Empty reports whether neither handle is known.
func (id Identity) Empty() bool {
	return id.DesignHandle == "" && id.ProjectHandle == ""
}

// PreviewResult is a partial, sectioned computation result returned by the
// calculation engine for a live preview.
type PreviewResult struct {
	Status   string
	Sections map[string]map[string]any
}

// CommitResult is the engine's answer to a create or update commit.
type CommitResult struct {
	Status        string
	DesignHandle  string
	ProjectHandle string
}

// CalcEngine is the opaque calculation service the orchestrator talks to.
// PreviewCalculate is idempotent and side-effect free; it is safe to call
// repeatedly and to abandon mid-flight. CommitStage is NOT idempotent: it
// creates or mutates persisted state exactly once per call.
type CalcEngine interface {
	PreviewCalculate(ctx context.Context, stage StageID, payload map[string]any) (PreviewResult, error)
	CommitStage(ctx context.Context, stage StageID, mode CommitMode, identity Identity, payload map[string]any) (CommitResult, error)
}

// EngineFuncs adapts plain functions to CalcEngine. Nil members fail fast,
// which keeps misconfigured tests and examples loud.
type EngineFuncs struct {
	Preview func(ctx context.Context, stage StageID, payload map[string]any) (PreviewResult, error)
	Commit  func(ctx context.Context, stage StageID, mode CommitMode, identity Identity, payload map[string]any) (CommitResult, error)
}

func (e EngineFuncs) PreviewCalculate(ctx context.Context, stage StageID, payload map[string]any) (PreviewResult, error) {
	if e.Preview == nil {
		return PreviewResult{}, ErrNoPreviewFunc
	}
	return e.Preview(ctx, stage, payload)
}

func (e EngineFuncs) CommitStage(ctx context.Context, stage StageID, mode CommitMode, identity Identity, payload map[string]any) (CommitResult, error) {
	if e.Commit == nil {
		return CommitResult{}, ErrNoCommitFunc
	}
	return e.Commit(ctx, stage, mode, identity, payload)
}
