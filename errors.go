package rasdesign

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingIdentity indicates an advance or commit was attempted before
	// the backend assigned design and project handles.
	ErrMissingIdentity = errors.New("rasdesign: design identity not established")
	// ErrIncompleteIdentity indicates only one of the two backend handles is
	// known; the resolver refuses to guess between create and update.
	ErrIncompleteIdentity = errors.New("rasdesign: design identity is incomplete")
	// ErrPipelineDone indicates an advance past the terminal report stage.
	ErrPipelineDone = errors.New("rasdesign: pipeline already at final stage")
	// ErrNoPriorStage indicates a retreat from the first stage.
	ErrNoPriorStage = errors.New("rasdesign: no prior stage to retreat to")
	// ErrUnknownStage indicates a stage id absent from the configured sequence.
	ErrUnknownStage = errors.New("rasdesign: unknown stage")
	// ErrStageNotOptional indicates a selection toggle on a mandatory stage.
	ErrStageNotOptional = errors.New("rasdesign: stage is not optional")
	// ErrUnknownField indicates an edit for a field the stage does not own.
	ErrUnknownField = errors.New("rasdesign: stage does not own field")
	// ErrNoEngine indicates a session was constructed without a CalcEngine.
	ErrNoEngine = errors.New("rasdesign: calculation engine is required")
	// ErrNoPreviewFunc indicates an EngineFuncs adapter without Preview.
	ErrNoPreviewFunc = errors.New("rasdesign: preview function not configured")
	// ErrNoCommitFunc indicates an EngineFuncs adapter without Commit.
	ErrNoCommitFunc = errors.New("rasdesign: commit function not configured")
)

// RuleFailure reports one validation rule that did not pass.
type RuleFailure struct {
	Expr    string
	Message string
}

// ValidationError reports required fields that were empty and rules that
// failed at a commit boundary. It is recoverable: the stage does not advance
// and the form is preserved for correction.
type ValidationError struct {
	Stage    StageID
	Missing  []string
	Failures []RuleFailure
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing required fields [%s]", strings.Join(e.Missing, ", ")))
	}
	for _, failure := range e.Failures {
		parts = append(parts, failure.Message)
	}
	if len(parts) == 0 {
		parts = append(parts, "invalid form")
	}
	return fmt.Sprintf("rasdesign: stage %q: %s", e.Stage, strings.Join(parts, "; "))
}

// CommitRejectedError reports a backend refusal of a create or update. The
// backend message is carried verbatim; form state and identity are untouched.
type CommitRejectedError struct {
	Stage   StageID
	Mode    CommitMode
	Message string
	Err     error
}

func (e *CommitRejectedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("rasdesign: commit %s for stage %q rejected: %s", e.Mode, e.Stage, e.Message)
}

func (e *CommitRejectedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PreviewError reports a transport or engine failure during a live preview.
// It never interrupts editing; affected readiness sections are downgraded to
// the error status and the next edit retries naturally.
type PreviewError struct {
	Stage StageID
	Token uint64
	Err   error
}

func (e *PreviewError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("rasdesign: preview for stage %q (request %d): %v", e.Stage, e.Token, e.Err)
}

func (e *PreviewError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
